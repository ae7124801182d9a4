package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/fmattioli/socrates/internal/prompt"
)

func TestNewAdapterModes(t *testing.T) {
	cases := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Mode: "mock"}, false},
		{Config{Mode: "auto"}, false},
		{Config{Mode: "auto", HTTPURL: "http://localhost:9000/generate"}, false},
		{Config{Mode: "http", HTTPURL: "http://localhost:9000/generate"}, false},
		{Config{Mode: "http"}, true},
		{Config{Mode: "carrier-pigeon"}, true},
	}
	for _, tc := range cases {
		_, err := NewAdapter(tc.cfg)
		if (err != nil) != tc.wantErr {
			t.Fatalf("NewAdapter(%+v) error = %v, wantErr %v", tc.cfg, err, tc.wantErr)
		}
	}
}

func TestMockAdapterEchoesInput(t *testing.T) {
	a := NewMockAdapter()
	res, err := a.Generate(context.Background(), Request{InputText: "what is a limit?"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(res.Text, "what is a limit?") {
		t.Fatalf("mock reply should echo input, got %q", res.Text)
	}
}

func TestMockAdapterUsesRelevantPast(t *testing.T) {
	a := NewMockAdapter()
	res, err := a.Generate(context.Background(), Request{
		InputText: "remember my color?",
		Context:   prompt.ContextBundle{RelevantPast: []string{"[user] my favorite color is blue"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(res.Text, "favorite color is blue") {
		t.Fatalf("mock reply should surface relevant past, got %q", res.Text)
	}
}

func TestMockAdapterHonorsCancellation(t *testing.T) {
	a := NewMockAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Generate(ctx, Request{InputText: "hi"}); err == nil {
		t.Fatalf("cancelled context should fail")
	}
}

func TestRenderSystemPromptSections(t *testing.T) {
	out := renderSystemPrompt(prompt.ContextBundle{
		RecentWindow: []string{"(showing 1 of 1)", "[user, just now] hi"},
		TopicSummary: []string{"algebra (mentioned 2x)"},
		RelevantPast: []string{"[user] my favorite color is blue"},
		Instruction:  "prefer the recorded context",
		StyleHint:    "Prefer diagrams.",
	})
	for _, want := range []string{"(showing 1 of 1)", "algebra (mentioned 2x)", "favorite color", "prefer the recorded context", "Prefer diagrams."} {
		if !strings.Contains(out, want) {
			t.Fatalf("system prompt missing %q: %q", want, out)
		}
	}
}
