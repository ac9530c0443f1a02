package progress

import "context"

// Sink consumes batches of events. Consume may be called many times and must honor ctx.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes single events. Hub implements it; so does Discard.
type Emitter interface {
	Emit(evt Event)
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}
