// Package memory provides an in-memory ConversationStore for testing and
// lightweight deployments. Transcripts are lost when the process restarts.
// Optional LRU eviction bounds the number of retained conversations.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/rhuss/bruecke/pkg/storage"
)

// conversation holds one conversation's recorded turns.
type conversation struct {
	turns   []storage.TurnRecord
	lruElem *list.Element // position in LRU list
}

// Store is an in-memory ConversationStore with optional LRU eviction.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	requestIDs    map[string]bool
	lruList       *list.List // front = most recently used, back = least recently used
	maxSize       int        // 0 = unlimited
}

// Ensure Store implements storage.ConversationStore at compile time.
var _ storage.ConversationStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently used conversation is
// evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		requestIDs:    make(map[string]bool),
		lruList:       list.New(),
		maxSize:       maxSize,
	}
}

// SaveTurn appends a completed turn to its conversation's transcript.
func (s *Store) SaveTurn(ctx context.Context, rec storage.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requestIDs[rec.RequestID] {
		return storage.ErrConflict
	}

	conv, ok := s.conversations[rec.ConversationID]
	if !ok {
		// Evict if at capacity before admitting a new conversation.
		if s.maxSize > 0 && len(s.conversations) >= s.maxSize {
			s.evictOldest()
		}
		conv = &conversation{}
		conv.lruElem = s.lruList.PushFront(rec.ConversationID)
		s.conversations[rec.ConversationID] = conv
	} else {
		s.lruList.MoveToFront(conv.lruElem)
	}

	conv.turns = append(conv.turns, rec)
	s.requestIDs[rec.RequestID] = true
	return nil
}

// ListTurns returns a conversation's turns in completion order.
func (s *Store) ListTurns(ctx context.Context, conversationID string) ([]storage.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	turns := make([]storage.TurnRecord, len(conv.turns))
	copy(turns, conv.turns)
	return turns, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently used conversation and its turns.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)

	if conv, ok := s.conversations[id]; ok {
		for _, rec := range conv.turns {
			delete(s.requestIDs, rec.RequestID)
		}
		delete(s.conversations, id)
	}
}
