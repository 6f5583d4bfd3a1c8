package realtime

import (
	"context"
	"sync"
)

// LocalHub is an in-process Stream for single-instance runs without Redis.
// Publish calls subscribers synchronously on the caller's goroutine.
type LocalHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Change)
}

func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[string]map[int]func(Change))}
}

func (h *LocalHub) Publish(_ context.Context, change Change) error {
	h.mu.RLock()
	callbacks := make([]func(Change), 0, len(h.subs[change.Table]))
	for _, cb := range h.subs[change.Table] {
		callbacks = append(callbacks, cb)
	}
	h.mu.RUnlock()

	for _, cb := range callbacks {
		deliver(cb, change)
	}
	return nil
}

func (h *LocalHub) Subscribe(ctx context.Context, table string, onChange func(Change)) (func(), error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[table] == nil {
		h.subs[table] = make(map[int]func(Change))
	}
	h.subs[table][id] = onChange
	h.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[table], id)
			h.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, remove)
	return func() {
		stop()
		remove()
	}, nil
}

// Subscribers reports the live subscription count for table.
func (h *LocalHub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
