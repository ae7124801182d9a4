// Package retrieval ranks stored conversation turns against a query using
// lexical keyword scoring. Scoring is intentionally rule-based: substring and
// whole-token matches plus a small recency bonus, no embeddings.
package retrieval

import (
	"sort"
	"strings"
	"time"

	"github.com/fmattioli/socrates/internal/memory"
)

// DefaultMaxResults bounds the number of turns returned per query.
const DefaultMaxResults = 5

const (
	substringScore = 1.0
	exactScore     = 0.5
	// recencyScale keeps the recency bonus below any single keyword match so
	// recency only breaks ties between equally relevant turns.
	recencyScale = 0.3
)

// Result pairs a matched turn with its relevance score.
type Result struct {
	Turn  memory.Turn
	Score float64
}

// Engine scores turns from a conversation store. It is stateless and reads
// the store it is given per call.
type Engine struct {
	maxResults int
}

// NewEngine creates an engine; maxResults <= 0 falls back to DefaultMaxResults.
func NewEngine(maxResults int) *Engine {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Engine{maxResults: maxResults}
}

// FindRelevant scans every stored turn, not just the recency window, so turns
// that fell out of the window but are still in the log remain recallable.
// Zero-score turns are dropped; ties are broken earliest-turn-first for
// determinism.
func (e *Engine) FindRelevant(store *memory.ConversationStore, query string) []Result {
	keywords := memory.ExtractKeywords(query)
	if len(keywords) == 0 {
		return nil
	}

	now := time.Now().UTC()
	turns := store.Turns()
	scored := make([]scoredTurn, 0, len(turns))
	for i, t := range turns {
		score := scoreTurn(t, keywords, now)
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredTurn{index: i, turn: t, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})
	if len(scored) > e.maxResults {
		scored = scored[:e.maxResults]
	}

	out := make([]Result, 0, len(scored))
	for _, s := range scored {
		out = append(out, Result{Turn: s.turn, Score: s.score})
	}
	return out
}

type scoredTurn struct {
	index int
	turn  memory.Turn
	score float64
}

func scoreTurn(t memory.Turn, keywords []string, now time.Time) float64 {
	text := strings.ToLower(t.Text)
	tokens := make(map[string]struct{})
	for _, tok := range memory.Tokenize(t.Text) {
		tokens[tok] = struct{}{}
	}

	var score float64
	matched := false
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score += substringScore
			matched = true
		}
		if _, ok := tokens[kw]; ok {
			score += exactScore
			matched = true
		}
	}
	if !matched {
		return 0
	}

	ageMinutes := now.Sub(t.CreatedAt).Minutes()
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	return score + recencyScale/(1+ageMinutes/60)
}
