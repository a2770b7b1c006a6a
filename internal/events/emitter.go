// Package events carries abuse events out of the process. Emitters are
// registered as detector listeners; delivery into an emitter is synchronous,
// what the emitter does with the event afterward is its own business.
package events

import (
	"encoding/json"
	"log"

	"github.com/mvolkov/gateward/internal/model"
)

// Emitter receives abuse events for external delivery.
type Emitter interface {
	Emit(event model.AbuseEvent)
}

// LogEmitter writes events to the process log.
type LogEmitter struct{}

// NewLogEmitter creates a LogEmitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

// Emit logs the event as JSON.
func (e *LogEmitter) Emit(event model.AbuseEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Printf("abuse event marshal failed: %v", err)
		return
	}
	log.Printf("ABUSE EVENT: %s", string(b))
}

// MultiEmitter fans one event out to several emitters in order.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates a MultiEmitter over the given emitters.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit delivers the event to every wrapped emitter.
func (m *MultiEmitter) Emit(event model.AbuseEvent) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}
