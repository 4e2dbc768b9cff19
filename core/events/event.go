package events

import "securewrap/core/types"

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, journal).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events emitted during one operation so they can be released
// only once the operation's writes commit.
type Buffer struct {
	events []*types.Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	b.events = append(b.events, payload.Clone())
}

// Events returns the collected payloads in emission order.
func (b *Buffer) Events() []*types.Event {
	if b == nil {
		return nil
	}
	out := make([]*types.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset drops collected events.
func (b *Buffer) Reset() {
	if b != nil {
		b.events = nil
	}
}

// Typed wraps a raw payload so it satisfies Event.
type Typed struct {
	Payload *types.Event
}

// EventType implements Event.
func (t Typed) EventType() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Type
}

// Event implements Event.
func (t Typed) Event() *types.Event { return t.Payload }
