// Package keyboard keeps the quick-reply options that accompany the next
// outbound message of a conversation.
package keyboard

import "sync"

// Registry stores pending quick-reply options per conversation. Offer is
// fire-and-forget; the transport calls Consume when it sends the reply.
type Registry struct {
	mu      sync.Mutex
	options map[string][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{options: make(map[string][]string)}
}

// Offer registers options for the next reply of the conversation, replacing
// any earlier offer. An empty offer clears the conversation's options.
func (r *Registry) Offer(conversationID string, options []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(options) == 0 {
		delete(r.options, conversationID)
		return
	}
	r.options[conversationID] = append([]string(nil), options...)
}

// Consume returns and clears the conversation's pending options.
func (r *Registry) Consume(conversationID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts := r.options[conversationID]
	delete(r.options, conversationID)
	return opts
}

// Peek returns the conversation's pending options without clearing them.
func (r *Registry) Peek(conversationID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.options[conversationID]...)
}
