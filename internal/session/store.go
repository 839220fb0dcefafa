// Package session holds the in-flight pending flows, one per conversation.
package session

import (
	"sync"
	"time"

	"fjacquet/finchat/internal/models"
)

// DefaultIdleTimeout is how long a flow may sit untouched before it expires.
const DefaultIdleTimeout = 60 * time.Minute

// Store maps a conversation id to its pending flow. Implementations must be
// safe for concurrent use across conversation ids. Get returns a copy: the
// only way to change a stored flow is Set.
type Store interface {
	Has(conversationID string) bool
	Get(conversationID string) (models.PendingFlow, bool)
	Set(flow models.PendingFlow)
	Remove(conversationID string) bool
	// Sweep removes every flow idle longer than the TTL at now and returns
	// the conversation ids it removed.
	Sweep(now time.Time) []string
	Len() int
	// Snapshot returns copies of every stored flow.
	Snapshot() []models.PendingFlow
}

// MemoryStore is a Store backed by sync.Map. Entries are immutable pointers:
// Set replaces the pointer, so readers never observe a half-written flow and
// no lock is shared between conversations.
type MemoryStore struct {
	flows sync.Map // conversation id -> *models.PendingFlow
	ttl   time.Duration
}

// NewMemoryStore creates an empty store expiring flows idle longer than ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdleTimeout
	}
	return &MemoryStore{ttl: ttl}
}

// TTL returns the idle timeout of the store.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Has reports whether a flow is stored for the conversation.
func (s *MemoryStore) Has(conversationID string) bool {
	_, ok := s.flows.Load(conversationID)
	return ok
}

// Get returns a deep copy of the conversation's flow.
func (s *MemoryStore) Get(conversationID string) (models.PendingFlow, bool) {
	v, ok := s.flows.Load(conversationID)
	if !ok {
		return models.PendingFlow{}, false
	}
	return v.(*models.PendingFlow).Clone(), true
}

// Set stores a copy of flow under its conversation id, replacing any
// existing flow.
func (s *MemoryStore) Set(flow models.PendingFlow) {
	stored := flow.Clone()
	s.flows.Store(flow.ConversationID, &stored)
}

// Remove deletes the conversation's flow and reports whether one existed.
func (s *MemoryStore) Remove(conversationID string) bool {
	_, ok := s.flows.LoadAndDelete(conversationID)
	return ok
}

// Sweep removes expired flows. An entry replaced concurrently by Set is
// compared by pointer and therefore survives.
func (s *MemoryStore) Sweep(now time.Time) []string {
	var removed []string
	s.flows.Range(func(key, value any) bool {
		flow := value.(*models.PendingFlow)
		if flow.Expired(now, s.ttl) && s.flows.CompareAndDelete(key, value) {
			removed = append(removed, key.(string))
		}
		return true
	})
	return removed
}

// Len returns the number of stored flows.
func (s *MemoryStore) Len() int {
	n := 0
	s.flows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns copies of every stored flow.
func (s *MemoryStore) Snapshot() []models.PendingFlow {
	var out []models.PendingFlow
	s.flows.Range(func(_, value any) bool {
		out = append(out, value.(*models.PendingFlow).Clone())
		return true
	})
	return out
}
