package memory

import (
	"errors"
	"sync"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Arena maps conversation IDs to their owned store instances. The arena only
// guards the map itself; turn processing on a single conversation is expected
// to be serialized by the caller.
type Arena struct {
	mu       sync.RWMutex
	capacity int
	stores   map[string]*ConversationStore
}

// NewArena creates an empty arena whose stores use the given turn capacity.
func NewArena(capacity int) *Arena {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Arena{capacity: capacity, stores: make(map[string]*ConversationStore)}
}

// Create registers a new conversation and returns its store. Creating an ID
// that already exists returns the existing store so a reconnecting client
// keeps its history.
func (a *Arena) Create(conversationID string) *ConversationStore {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.stores[conversationID]; ok {
		return s
	}
	s := NewConversationStore(conversationID, a.capacity)
	a.stores[conversationID] = s
	return s
}

// Get returns the store for a conversation.
func (a *Arena) Get(conversationID string) (*ConversationStore, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.stores[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return s, nil
}

// Remove discards a conversation and its content. Conversation content is
// never persisted past the conversation's lifetime.
func (a *Arena) Remove(conversationID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.stores[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(a.stores, conversationID)
	return nil
}

// ActiveCount returns the number of live conversations.
func (a *Arena) ActiveCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.stores)
}
