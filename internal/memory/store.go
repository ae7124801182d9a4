package memory

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the turn log of a single conversation.
const DefaultCapacity = 100

// DefaultRecentWindow is the number of turns surfaced by RecentWindow.
const DefaultRecentWindow = 20

// ConversationStore is the bounded, append-only turn log plus topic-frequency
// table for one conversation. It is owned by exactly one conversation; callers
// serialize turn processing, so no internal locking is needed here.
type ConversationStore struct {
	ConversationID string

	capacity int
	turns    []Turn
	topics   map[string]*TopicRecord
}

// NewConversationStore creates an empty store. A capacity <= 0 falls back to
// DefaultCapacity.
func NewConversationStore(conversationID string, capacity int) *ConversationStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ConversationStore{
		ConversationID: conversationID,
		capacity:       capacity,
		topics:         make(map[string]*TopicRecord),
	}
}

// Append records one turn, extracts its keywords, updates the topic table and
// evicts the oldest turn when over capacity. Eviction is designed behavior,
// not an error; it is logged at debug level only.
func (s *ConversationStore) Append(turn Turn) Turn {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.Keywords == nil {
		turn.Keywords = ExtractKeywords(turn.Text)
	}

	for _, kw := range turn.Keywords {
		rec, ok := s.topics[kw]
		if !ok {
			rec = &TopicRecord{Topic: kw}
			s.topics[kw] = rec
		}
		rec.MentionCount++
		rec.Weight++
		rec.LastMentionAt = turn.CreatedAt
	}

	s.turns = append(s.turns, turn)
	if len(s.turns) > s.capacity {
		evicted := s.turns[0]
		s.turns = append(s.turns[:0], s.turns[1:]...)
		slog.Debug("conversation turn evicted",
			"conversation_id", s.ConversationID,
			"turn_id", evicted.ID,
			"capacity", s.capacity)
	}
	return turn
}

// Len returns the number of stored turns.
func (s *ConversationStore) Len() int { return len(s.turns) }

// Turns returns a copy of all stored turns, oldest first.
func (s *ConversationStore) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// RecentWindow returns the last k turns oldest-first, each tagged with a
// relative-age label. k <= 0 falls back to DefaultRecentWindow.
func (s *ConversationStore) RecentWindow(k int) []WindowEntry {
	if k <= 0 {
		k = DefaultRecentWindow
	}
	if k > len(s.turns) {
		k = len(s.turns)
	}
	now := time.Now().UTC()
	out := make([]WindowEntry, 0, k)
	for _, t := range s.turns[len(s.turns)-k:] {
		out = append(out, WindowEntry{Turn: t, AgeLabel: ageLabel(now.Sub(t.CreatedAt))})
	}
	return out
}

// TopTopics returns up to k topics ranked by weight descending, ties broken
// by most recent mention. The read is idempotent.
func (s *ConversationStore) TopTopics(k int) []TopicRecord {
	if k <= 0 {
		k = 5
	}
	out := make([]TopicRecord, 0, len(s.topics))
	for _, rec := range s.topics {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		if !out[i].LastMentionAt.Equal(out[j].LastMentionAt) {
			return out[i].LastMentionAt.After(out[j].LastMentionAt)
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Clear empties both the turn log and the topic table.
func (s *ConversationStore) Clear() {
	s.turns = nil
	s.topics = make(map[string]*TopicRecord)
}

func ageLabel(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", maxInt(1, int(age.Minutes())))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", maxInt(1, int(age.Hours())))
	default:
		return fmt.Sprintf("%dd ago", maxInt(1, int(age.Hours()/24)))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
