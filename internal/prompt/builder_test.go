package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fmattioli/socrates/internal/memory"
	"github.com/fmattioli/socrates/internal/retrieval"
	"github.com/fmattioli/socrates/internal/style"
)

func newStore(texts ...string) *memory.ConversationStore {
	s := memory.NewConversationStore("c1", 0)
	for _, text := range texts {
		s.Append(memory.Turn{Role: memory.RoleUser, Text: text})
	}
	return s
}

func TestBuildRecentWindowHeader(t *testing.T) {
	s := memory.NewConversationStore("c1", 0)
	for i := 0; i < 30; i++ {
		s.Append(memory.Turn{Role: memory.RoleUser, Text: fmt.Sprintf("message %d", i)})
	}

	b := NewBuilder(retrieval.NewEngine(0), 20)
	bundle := b.Build(s, "anything", style.Undetermined)

	if len(bundle.RecentWindow) != 21 {
		t.Fatalf("recent window lines = %d, want 20 turns + header", len(bundle.RecentWindow))
	}
	if bundle.RecentWindow[0] != "(showing 20 of 30)" {
		t.Fatalf("header = %q", bundle.RecentWindow[0])
	}
	if !strings.Contains(bundle.RecentWindow[1], "[user, ") {
		t.Fatalf("window line missing role/age tag: %q", bundle.RecentWindow[1])
	}
}

func TestTopicSummaryFormat(t *testing.T) {
	s := newStore("algebra algebra", "more algebra today")
	b := NewBuilder(retrieval.NewEngine(0), 0)
	bundle := b.Build(s, "hello there", style.Undetermined)

	found := false
	for _, line := range bundle.TopicSummary {
		if strings.HasPrefix(line, "algebra (mentioned ") && strings.HasSuffix(line, "x)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("topic summary missing algebra line: %v", bundle.TopicSummary)
	}
}

func TestRelevantPastOnlyOnRecallQueries(t *testing.T) {
	s := newStore("my favorite color is blue", "pasta is great")
	b := NewBuilder(retrieval.NewEngine(0), 0)

	plain := b.Build(s, "teach me fractions please", style.Undetermined)
	if len(plain.RelevantPast) != 0 {
		t.Fatalf("non-recall query populated relevantPast: %v", plain.RelevantPast)
	}

	recall := b.Build(s, "do you remember my favorite color", style.Undetermined)
	if len(recall.RelevantPast) == 0 {
		t.Fatalf("recall query returned no relevant past")
	}
	if !strings.Contains(recall.RelevantPast[0], "favorite color is blue") {
		t.Fatalf("top relevant past = %q", recall.RelevantPast[0])
	}
}

func TestIsRecallQuery(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"do you remember what I said", true},
		{"we discussed this earlier", true},
		{"you told me about limits", true},
		{"explain derivatives", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsRecallQuery(tc.query); got != tc.want {
			t.Fatalf("IsRecallQuery(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestStyleHintPresentForDominantStyle(t *testing.T) {
	s := newStore("hello")
	b := NewBuilder(retrieval.NewEngine(0), 0)

	bundle := b.Build(s, "hi", style.Visual)
	if bundle.StyleHint == "" {
		t.Fatalf("expected style hint for visual learner")
	}
	bundle = b.Build(s, "hi", style.Undetermined)
	if bundle.StyleHint != "" {
		t.Fatalf("undetermined style should not produce a hint, got %q", bundle.StyleHint)
	}
	if bundle.Instruction == "" {
		t.Fatalf("bundle must always carry the context instruction")
	}
}
