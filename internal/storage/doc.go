// Package storage implements the tiered key/value storage engine at the
// base of the core.
//
// Three tiers differ only in lifetime guarantees: Instance state lives as
// long as the contract instance, Temporary state expires after a bounded
// number of ledger sequences, and Persistent state survives logic
// upgrades. Expiry is driven by a Sequencer (the host clock) rather than
// wall time, so reads are deterministic for a given ledger sequence.
//
// The store is the exclusive owner of all core state. Capability checks do
// not live here - the access control module decides who may write; this
// package only refuses writes it cannot hold (STORAGE_FULL) or encode
// (SERIALIZATION_ERROR).
package storage
