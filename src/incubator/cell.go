// Package incubator turns "wait until this dependency is ready" into a
// single resolution handle that either completes or is cancelled.
package incubator

import (
	"context"
	"sync"
)

// Result is what a Cell resolves to. Value is the zero value when Cancelled.
type Result[T any] struct {
	Value     T
	Cancelled bool
}

// Cell is a one-shot completion. The first Complete or Cancel wins; later calls are ignored.
// Callbacks registered with Then run on the goroutine that resolves the cell.
type Cell[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	result   Result[T]
	waiters  []func(Result[T])
}

func NewCell[T any]() *Cell[T] {
	return &Cell[T]{done: make(chan struct{})}
}

// Completed returns a cell already resolved with value.
func Completed[T any](value T) *Cell[T] {
	c := NewCell[T]()
	c.Complete(value)
	return c
}

func (c *Cell[T]) Complete(value T) bool {
	return c.resolve(Result[T]{Value: value})
}

func (c *Cell[T]) Cancel() bool {
	return c.resolve(Result[T]{Cancelled: true})
}

func (c *Cell[T]) resolve(result Result[T]) bool {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return false
	}
	c.resolved = true
	c.result = result
	waiters := c.waiters
	c.waiters = nil
	close(c.done)
	c.mu.Unlock()

	for _, w := range waiters {
		w(result)
	}
	return true
}

// Then runs fn once the cell resolves, immediately if it already has.
func (c *Cell[T]) Then(fn func(Result[T])) {
	c.mu.Lock()
	if !c.resolved {
		c.waiters = append(c.waiters, fn)
		c.mu.Unlock()
		return
	}
	result := c.result
	c.mu.Unlock()
	fn(result)
}

func (c *Cell[T]) Done() <-chan struct{} { return c.done }

func (c *Cell[T]) Result() (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.resolved
}

// Wait blocks until the cell resolves or ctx ends.
func (c *Cell[T]) Wait(ctx context.Context) (Result[T], error) {
	select {
	case <-c.done:
		result, _ := c.Result()
		return result, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}
