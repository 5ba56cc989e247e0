package host

import (
	"log/slog"

	"github.com/roach88/keel/internal/event"
	"github.com/roach88/keel/internal/storage"
)

// Env is the explicit environment handle threaded through every core
// operation. There is no hidden global: a function that touches state
// receives an *Env and goes through its storage engine and event log.
type Env struct {
	Clock  *Clock
	Store  *storage.Store
	Events *event.Log
	Log    *slog.Logger
}

// Option configures an Env.
type Option func(*cfg)

type cfg struct {
	logger    *slog.Logger
	clock     *Clock
	sink      event.Sink
	storeOpts []storage.Option
}

// WithLogger sets the structured logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *cfg) {
		c.logger = logger
	}
}

// WithClock substitutes a pre-positioned clock. Used by replay.
func WithClock(clock *Clock) Option {
	return func(c *cfg) {
		c.clock = clock
	}
}

// WithEventSink attaches a durable sink to the event log.
func WithEventSink(sink event.Sink) Option {
	return func(c *cfg) {
		c.sink = sink
	}
}

// WithStorageOptions forwards options to the storage engine.
func WithStorageOptions(opts ...storage.Option) Option {
	return func(c *cfg) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// NewEnv wires a fresh environment: one clock, one storage engine reading
// ledger sequences from it, and one event log stamping from it.
func NewEnv(opts ...Option) *Env {
	c := &cfg{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = NewClock()
	}

	eventOpts := []event.Option{event.WithLogger(c.logger)}
	if c.sink != nil {
		eventOpts = append(eventOpts, event.WithSink(c.sink))
	}

	return &Env{
		Clock:  c.clock,
		Store:  storage.New(c.clock, c.storeOpts...),
		Events: event.NewLog(c.clock, eventOpts...),
		Log:    c.logger,
	}
}
