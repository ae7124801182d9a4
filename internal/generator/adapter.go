// Package generator bridges the middleware to the external generative model.
// The model is opaque text-in/text-out; failures propagate unchanged and no
// retries happen here, since the middleware lacks the context to guess
// intent.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fmattioli/socrates/internal/prompt"
)

// Request is the normalized generation request.
type Request struct {
	UserID         string               `json:"user_id"`
	ConversationID string               `json:"conversation_id"`
	TurnID         string               `json:"turn_id"`
	InputText      string               `json:"input_text"`
	Context        prompt.ContextBundle `json:"context"`
}

// Response is the generated reply.
type Response struct {
	Text string `json:"text"`
}

// Generator produces a reply for one turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode        string
	HTTPURL     string
	OpenAIModel string
}

// NewAdapter selects a generator implementation by mode.
func NewAdapter(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPAdapter(cfg.HTTPURL), nil
		}
		return NewMockAdapter(), nil
	case "mock":
		return NewMockAdapter(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("generator HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "openai":
		return NewOpenAIAdapter(cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}
