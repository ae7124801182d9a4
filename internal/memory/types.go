package memory

import "time"

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn stores a single user or assistant conversational turn. A turn is
// immutable once appended; its keyword set is extracted at append time.
type Turn struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
	Keywords    []string  `json:"keywords,omitempty"`
}

// TopicRecord tracks a recurring keyword across the conversation. Topic
// salience intentionally outlives the raw turns that produced it: eviction
// of old turns leaves the topic table untouched.
type TopicRecord struct {
	Topic         string    `json:"topic"`
	MentionCount  int       `json:"mention_count"`
	LastMentionAt time.Time `json:"last_mention_at"`
	Weight        float64   `json:"weight"`
}

// WindowEntry is a recent-window turn tagged with a relative-age label.
type WindowEntry struct {
	Turn     Turn
	AgeLabel string
}
