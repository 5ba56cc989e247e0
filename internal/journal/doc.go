// Package journal layers durability on the in-memory core.
//
// The core itself performs no I/O. The journal subscribes to its two
// output streams - settled invocations (contract.Recorder) and published
// events (event.Sink) - and appends them to SQLite. Because execution is
// deterministic, the invocation stream alone reconstructs all state:
// Replay re-dispatches the journaled invocations against a fresh
// environment and cross-checks the event stream to prove the history is
// reproducible.
package journal
