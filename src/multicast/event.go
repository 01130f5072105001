package multicast

import "sync"

// ID identifies one subscription. The zero ID is never issued.
type ID uint64

type entry[T any] struct {
	id      ID
	handler func(T)
}

// Event fans a value out to every subscribed handler.
// Trigger iterates a snapshot, so handlers may subscribe or unsubscribe while it runs.
type Event[T any] struct {
	mu       sync.Mutex
	lastID   ID
	handlers []entry[T]
}

func (e *Event[T]) Subscribe(handler func(T)) ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastID++
	e.handlers = append(e.handlers, entry[T]{id: e.lastID, handler: handler})
	return e.lastID
}

// Unsubscribe removes the handler registered under id. Unknown ids are ignored.
func (e *Event[T]) Unsubscribe(id ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

func (e *Event[T]) Trigger(value T) {
	e.mu.Lock()
	if len(e.handlers) == 0 {
		e.mu.Unlock()
		return
	}
	snapshot := make([]entry[T], len(e.handlers))
	copy(snapshot, e.handlers)
	e.mu.Unlock()

	for _, h := range snapshot {
		h.handler(value)
	}
}

func (e *Event[T]) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Signal is an Event without a payload.
type Signal = Event[struct{}]

// Fire triggers a Signal.
func Fire(s *Signal) {
	s.Trigger(struct{}{})
}
