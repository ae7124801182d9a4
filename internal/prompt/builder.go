// Package prompt assembles the context bundle injected into the outbound
// generation request: the recent conversation window, a topic summary and,
// for recall-type questions, the relevant past turns.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fmattioli/socrates/internal/memory"
	"github.com/fmattioli/socrates/internal/retrieval"
	"github.com/fmattioli/socrates/internal/style"
)

// recallTriggers gate retrieval: relevant-past lookup only runs when the user
// is actually asking about prior conversation, which avoids retrieval noise on
// ordinary turns. The phrase set is tunable policy, not a fixed contract.
var recallTriggers = []string{
	"remember",
	"you said",
	"you told me",
	"we discussed",
	"we talked about",
	"earlier",
	"last time",
	"before",
	"did i tell you",
	"what did i say",
}

const contextInstruction = "When the student asks about something from earlier in this conversation, " +
	"answer from the recorded context above rather than assuming or inventing shared history. " +
	"If the context does not contain it, say so."

// ContextBundle is the sole artifact handed to the external generator. The
// builder never invokes the generator itself.
type ContextBundle struct {
	RecentWindow  []string        `json:"recent_window"`
	TopicSummary  []string        `json:"topic_summary"`
	RelevantPast  []string        `json:"relevant_past,omitempty"`
	Instruction   string          `json:"instruction"`
	StyleHint     string          `json:"style_hint,omitempty"`
	DominantStyle style.Dimension `json:"dominant_style"`
}

// Builder formats store and retrieval output into a ContextBundle.
type Builder struct {
	engine     *retrieval.Engine
	windowSize int
}

// NewBuilder creates a builder; windowSize <= 0 falls back to the store's
// default recent window.
func NewBuilder(engine *retrieval.Engine, windowSize int) *Builder {
	if windowSize <= 0 {
		windowSize = memory.DefaultRecentWindow
	}
	return &Builder{engine: engine, windowSize: windowSize}
}

// Build assembles the bundle for one user query.
func (b *Builder) Build(store *memory.ConversationStore, query string, dominant style.Dimension) ContextBundle {
	bundle := ContextBundle{
		Instruction:   contextInstruction,
		DominantStyle: dominant,
		StyleHint:     styleHint(dominant),
	}

	window := store.RecentWindow(b.windowSize)
	total := store.Len()
	lines := make([]string, 0, len(window)+1)
	lines = append(lines, fmt.Sprintf("(showing %d of %d)", len(window), total))
	for _, e := range window {
		lines = append(lines, fmt.Sprintf("[%s, %s] %s", e.Turn.Role, e.AgeLabel, e.Turn.Text))
	}
	bundle.RecentWindow = lines

	for _, topic := range store.TopTopics(5) {
		bundle.TopicSummary = append(bundle.TopicSummary,
			fmt.Sprintf("%s (mentioned %dx)", topic.Topic, topic.MentionCount))
	}

	if IsRecallQuery(query) {
		for _, r := range b.engine.FindRelevant(store, query) {
			bundle.RelevantPast = append(bundle.RelevantPast,
				fmt.Sprintf("[%s] %s", r.Turn.Role, r.Turn.Text))
		}
	}

	return bundle
}

// IsRecallQuery reports whether the query matches the recall-trigger set.
func IsRecallQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, trigger := range recallTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

func styleHint(d style.Dimension) string {
	switch d {
	case style.Visual:
		return "Prefer diagrams, spatial metaphors and visual descriptions."
	case style.Auditory:
		return "Prefer spoken-style walkthroughs and verbal analogies."
	case style.Kinesthetic:
		return "Prefer hands-on exercises the student can try themselves."
	case style.Reading:
		return "Prefer written summaries, lists and precise definitions."
	default:
		return ""
	}
}
