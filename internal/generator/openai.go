package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/fmattioli/socrates/internal/prompt"
)

// OpenAIAdapter backs generation with the OpenAI Chat Completions API via the
// official client. Credentials come from the environment.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(model string) *OpenAIAdapter {
	if strings.TrimSpace(model) == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIAdapter{client: openai.NewClient(), model: model}
}

func (a *OpenAIAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(renderSystemPrompt(req.Context)),
			openai.UserMessage(req.InputText),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, errors.New("openai completion returned no choices")
	}
	return Response{Text: completion.Choices[0].Message.Content}, nil
}

// renderSystemPrompt flattens the context bundle into the system message.
func renderSystemPrompt(bundle prompt.ContextBundle) string {
	var b strings.Builder
	b.WriteString("You are a patient tutor.\n")
	if bundle.StyleHint != "" {
		b.WriteString(bundle.StyleHint)
		b.WriteString("\n")
	}
	if len(bundle.RecentWindow) > 0 {
		b.WriteString("\nRecent conversation ")
		b.WriteString(strings.Join(bundle.RecentWindow, "\n"))
		b.WriteString("\n")
	}
	if len(bundle.TopicSummary) > 0 {
		b.WriteString("\nTopics so far: ")
		b.WriteString(strings.Join(bundle.TopicSummary, ", "))
		b.WriteString("\n")
	}
	if len(bundle.RelevantPast) > 0 {
		b.WriteString("\nRelevant earlier turns:\n")
		b.WriteString(strings.Join(bundle.RelevantPast, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(bundle.Instruction)
	return b.String()
}
