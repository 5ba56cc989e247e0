package host

import "sync/atomic"

// Clock is the monotonic logical clock for the core. It owns two counters:
//
//   - the event sequence, a strictly increasing stamp assigned to every
//     mutation and published event (Next/Current)
//   - the ledger sequence, the coarse "block height" advanced once per
//     external invocation, which drives Temporary-tier TTL expiry
//
// Neither counter ever reads wall-clock time; replay of the same
// invocation order reproduces identical stamps.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// dispatcher's single-writer design means one goroutine is the norm.
type Clock struct {
	seq    atomic.Int64
	ledger atomic.Int64
}

// NewClock creates a clock with both counters at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resumed at specific counter positions.
// Used by replay to continue from the last journaled state.
func NewClockAt(seq, ledgerSeq int64) *Clock {
	c := &Clock{}
	c.seq.Store(seq)
	c.ledger.Store(ledgerSeq)
	return c
}

// Next returns the next event sequence number and increments the counter.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current event sequence without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// LedgerSeq returns the current ledger sequence.
func (c *Clock) LedgerSeq() int64 {
	return c.ledger.Load()
}

// AdvanceLedger moves the ledger sequence forward by n and returns the new
// value. The dispatcher advances by one before each external invocation;
// tests advance further to force TTL expiry.
func (c *Clock) AdvanceLedger(n int64) int64 {
	return c.ledger.Add(n)
}
