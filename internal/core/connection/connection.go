// Package connection describes socket lifecycle events.
package connection

import (
	"sync"

	"github.com/rs/zerolog"
)

// State is the lifecycle state reported by the socket layer.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClose      State = "close"
)

// Update is a single connection lifecycle event.
type Update struct {
	State State
}

// Events is the subscription side of the socket's lifecycle stream.
type Events interface {
	// OnUpdate registers fn for every subsequent update. Registrations live
	// for the lifetime of the socket.
	OnUpdate(fn func(Update))
}

// Emitter is an in-memory Events implementation. Handlers run synchronously
// in registration order; a panicking handler is logged and skipped.
type Emitter struct {
	mu       sync.RWMutex
	handlers []func(Update)
	log      zerolog.Logger
}

// NewEmitter creates an Emitter.
func NewEmitter(log zerolog.Logger) *Emitter {
	return &Emitter{log: log}
}

// OnUpdate implements Events.
func (e *Emitter) OnUpdate(fn func(Update)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
}

// Emit delivers u to every registered handler.
func (e *Emitter) Emit(u Update) {
	e.mu.RLock()
	handlers := make([]func(Update), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for i, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error().
						Int("handler", i).
						Str("state", string(u.State)).
						Interface("panic", r).
						Msg("connection handler panic")
				}
			}()
			h(u)
		}()
	}
}
