package persistence

import (
	"context"
	"sort"
	"sync"
)

// SnapshotRepository stores one snapshot per conversation.
type SnapshotRepository interface {
	Save(ctx context.Context, s Snapshot) error
	// Load returns false when the conversation has no snapshot.
	Load(ctx context.Context, conversationID string) (Snapshot, bool, error)
	Delete(ctx context.Context, conversationID string) error
	List(ctx context.Context) ([]Snapshot, error)
}

// MemoryRepository keeps snapshots in a map.
type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snapshots: make(map[string]Snapshot)}
}

func (r *MemoryRepository) Save(_ context.Context, s Snapshot) error {
	s.Payload = append([]byte(nil), s.Payload...)
	r.mu.Lock()
	r.snapshots[s.ConversationID] = s
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Load(_ context.Context, conversationID string) (Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[conversationID]
	return s, ok, nil
}

func (r *MemoryRepository) Delete(_ context.Context, conversationID string) error {
	r.mu.Lock()
	delete(r.snapshots, conversationID)
	r.mu.Unlock()
	return nil
}

// List returns the snapshots ordered by conversation id.
func (r *MemoryRepository) List(_ context.Context) ([]Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConversationID < out[j].ConversationID })
	return out, nil
}
