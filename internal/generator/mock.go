package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter produces deterministic local replies when no model backend is
// configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	base := strings.TrimSpace(req.InputText)
	if base == "" {
		base = "I'm listening."
	}

	if len(req.Context.RelevantPast) == 0 {
		return Response{Text: fmt.Sprintf("Let's work on that: %s", base)}, nil
	}
	last := req.Context.RelevantPast[0]
	return Response{Text: fmt.Sprintf("Let's work on that: %s\nFrom our conversation: %s", base, last)}, nil
}
