package events

import (
	"context"
	"sync"
)

// Handler receives a published event. Handler errors are dropped by the
// dispatcher: a milestone notification must never affect the run outcome.
type Handler func(context.Context, Event) error

// Dispatcher publishes workflow milestone events to registered handlers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(handler Handler)
}

// dispatcher delivers events synchronously, in subscription order. Every
// handler sees every event; a run publishes at most one event per GLPI
// write, so there is no per-type routing and no buffering.
type dispatcher struct {
	mu       sync.Mutex
	handlers []Handler
}

// NewDispatcher creates an in-process dispatcher.
func NewDispatcher() Dispatcher {
	return &dispatcher{}
}

func (d *dispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.Lock()
	handlers := append([]Handler(nil), d.handlers...)
	d.mu.Unlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *dispatcher) Subscribe(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}
