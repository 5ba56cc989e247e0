// Package contract implements the invocation surface of the core: an
// explicit operation table (Registry) and a single-writer Dispatcher
// executing one external call at a time.
//
// The dispatcher is where the cross-cutting invariants live. It advances
// the ledger sequence once per external invocation, applies lifecycle
// gates before any mutating handler runs, holds the reentrancy guard
// around guarded operations (released on every exit path), bounds handler
// execution with a step quota, and records every settled invocation in
// the journal.
//
// Lifecycle control operations (pause, unpause, emergency stop/reset)
// register as non-Mutating: they authorize and gate themselves through
// the state machine, and an unpause must be callable while paused.
package contract
