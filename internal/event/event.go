package event

import (
	"log/slog"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

// Event is an ordered, immutable record appended to the log. Never mutated
// or removed after creation.
type Event struct {
	// Topic names the event kind ("transfer", "mint", "role_granted", ...).
	Topic string

	// Payload is the structured event body.
	Payload val.Value

	// Seq is the event's position in the total order, stamped from the
	// host clock at publish time.
	Seq int64
}

// Sequencer stamps events with strictly increasing sequence numbers.
// Satisfied by host.Clock.
type Sequencer interface {
	Next() int64
}

// Sink receives every appended event, in order. Implemented by the journal
// for durable persistence. A failing sink fails the publish; the in-memory
// append is rolled back so the log and the sink never diverge.
type Sink interface {
	AppendEvent(ev Event) error
}

// Log is the append-only notification stream. Events from the same
// invocation are appended in the order Publish was called; cross-invocation
// ordering follows invocation order (the dispatch layer is single-writer).
//
// The log is write-only from the core's perspective - consumers (indexers,
// frontends, the CLI) read it externally.
type Log struct {
	seq    Sequencer
	sink   Sink
	logger *slog.Logger
	events []Event
}

// Option configures a Log.
type Option func(*Log)

// WithSink attaches a durable sink receiving every published event.
func WithSink(s Sink) Option {
	return func(l *Log) {
		l.sink = s
	}
}

// WithLogger attaches a structured logger for publish diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// NewLog creates an empty log stamping sequence numbers from seq.
func NewLog(seq Sequencer, opts ...Option) *Log {
	l := &Log{
		seq:    seq,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Publish appends an event to the log. The payload must be canonically
// encodable; a payload that cannot be encoded is rejected with
// SERIALIZATION_ERROR before anything is appended.
func (l *Log) Publish(topic string, payload val.Value) error {
	if _, err := val.MarshalCanonical(payload); err != nil {
		return fault.New(fault.CodeSerialization, "event %q payload: %v", topic, err)
	}

	ev := Event{
		Topic:   topic,
		Payload: payload,
		Seq:     l.seq.Next(),
	}
	l.events = append(l.events, ev)

	if l.sink != nil {
		if err := l.sink.AppendEvent(ev); err != nil {
			l.events = l.events[:len(l.events)-1]
			return err
		}
	}

	l.logger.Debug("event published", "topic", topic, "seq", ev.Seq)
	return nil
}

// Events returns a copy of the log in append order.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events in the log.
func (l *Log) Len() int {
	return len(l.events)
}
