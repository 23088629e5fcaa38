// Package events provides a typed publish/subscribe registry.
package events

import "sync"

// Registry fans out published values of type T to its subscribers.
// Handlers run synchronously on the publisher's goroutine, in subscription order.
type Registry[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Subscribe registers fn and returns the func that removes it.
// Calling the returned func more than once is a no-op.
func (r *Registry[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry[T]) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subs {
		if sub.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber with v.
func (r *Registry[T]) Publish(v T) {
	r.mu.RLock()
	subs := make([]subscription[T], len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

// Len returns the number of active subscribers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
