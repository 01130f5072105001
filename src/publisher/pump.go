package publisher

import (
	"context"

	"motifcore/src/utils/errors"
)

var ErrPumpStopped = errors.Sentinel("pump stopped")

// Pump runs queued functions one at a time on a single goroutine. Every call
// into the manager or a node goes through it.
type Pump struct {
	tasks chan func()
	done  chan struct{}
}

func NewPump(queueSize int) *Pump {
	return &Pump{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued are dropped.
func (p *Pump) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			task()
		}
	}
}

// Do queues fn. It blocks while the queue is full and reports false once the pump has stopped.
func (p *Pump) Do(fn func()) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.tasks <- fn:
		return true
	case <-p.done:
		return false
	}
}

// Call runs fn on the pump and waits for it to finish.
func (p *Pump) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !p.Do(func() {
		defer close(finished)
		fn()
	}) {
		return ErrPumpStopped
	}
	select {
	case <-finished:
		return nil
	case <-p.done:
		return ErrPumpStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (p *Pump) Done() <-chan struct{} { return p.done }
