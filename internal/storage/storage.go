package storage

import (
	"sort"
	"strings"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

// Tier is a storage class differing in lifetime guarantees.
type Tier int

const (
	// TierInstance lives exactly as long as the contract instance.
	// Used for configuration, metadata, and hot counters.
	TierInstance Tier = iota

	// TierTemporary logically expires after a bounded number of ledger
	// sequences. Reads past expiry behave as absent, not as an error.
	TierTemporary

	// TierPersistent survives logic upgrades. Used for balances and roles.
	TierPersistent
)

// String returns the tier name for logs and journal records.
func (t Tier) String() string {
	switch t {
	case TierInstance:
		return "instance"
	case TierTemporary:
		return "temporary"
	case TierPersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// DefaultTemporaryTTL is the lifetime, in ledger sequences, assigned to a
// Temporary entry at write time. ExtendTTL lengthens it.
const DefaultTemporaryTTL = 16

// DefaultMaxEntries bounds the total number of live entries across all
// tiers. Writes past the bound fail with STORAGE_FULL.
const DefaultMaxEntries = 4096

// Sequencer supplies the current ledger sequence number. Satisfied by
// host.Clock; tests substitute a fixed implementation.
type Sequencer interface {
	LedgerSeq() int64
}

type entry struct {
	value     val.Value
	liveUntil int64 // last ledger sequence the entry is readable at (Temporary only)
}

// Store is the tiered key/value storage engine. It exclusively owns all
// persisted state: every other module reads and writes ledger truth only
// through this interface, and nothing keeps a private mutable copy.
//
// All operations are synchronous and deterministic. The store performs no
// I/O; durability is layered on externally by the journal.
type Store struct {
	seq        Sequencer
	maxEntries int
	tiers      [3]map[string]entry
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries overrides the entry budget.
// Use WithMaxEntries(1) for testing STORAGE_FULL handling.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		s.maxEntries = n
	}
}

// New creates an empty store reading ledger sequences from seq.
func New(seq Sequencer, opts ...Option) *Store {
	s := &Store{
		seq:        seq,
		maxEntries: DefaultMaxEntries,
	}
	for i := range s.tiers {
		s.tiers[i] = make(map[string]entry)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key in the given tier. The second
// return is false when the key is absent - including a Temporary entry
// whose TTL has elapsed. Expired entries are never returned stale.
func (s *Store) Get(tier Tier, key Key) (val.Value, bool, error) {
	ek, err := key.Encode()
	if err != nil {
		return nil, false, err
	}

	e, ok := s.tiers[tier][ek]
	if !ok {
		return nil, false, nil
	}
	if tier == TierTemporary && s.seq.LedgerSeq() > e.liveUntil {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set writes value under key in the given tier, replacing any previous
// value. A Temporary entry is given DefaultTemporaryTTL ledger sequences
// of life; use ExtendTTL to lengthen it.
//
// Returns STORAGE_FULL when the write would create a new entry past the
// entry budget, and SERIALIZATION_ERROR when the value cannot be
// canonically encoded. On either error nothing is written.
func (s *Store) Set(tier Tier, key Key, value val.Value) error {
	ek, err := key.Encode()
	if err != nil {
		return err
	}

	// Validate encodability before any mutation.
	if _, err := val.MarshalCanonical(value); err != nil {
		return fault.New(fault.CodeSerialization, "value for key %s: %v", key, err)
	}

	if _, exists := s.tiers[tier][ek]; !exists && s.live() >= s.maxEntries {
		return fault.New(fault.CodeStorageFull, "entry budget %d exhausted", s.maxEntries)
	}

	e := entry{value: value}
	if tier == TierTemporary {
		e.liveUntil = s.seq.LedgerSeq() + DefaultTemporaryTTL
	}
	s.tiers[tier][ek] = e
	return nil
}

// Has reports whether key is present (and, for Temporary, unexpired).
func (s *Store) Has(tier Tier, key Key) (bool, error) {
	_, ok, err := s.Get(tier, key)
	return ok, err
}

// Remove deletes the entry under key. Removing an absent key is a no-op.
func (s *Store) Remove(tier Tier, key Key) error {
	ek, err := key.Encode()
	if err != nil {
		return err
	}
	delete(s.tiers[tier], ek)
	return nil
}

// ExtendTTL extends the lifetime of the entry under key. If fewer than
// minLedgers of life remain, the entry's life is reset to maxLedgers from
// the current ledger sequence; otherwise the call is a no-op.
//
// Only Temporary entries expire in this engine; extending an Instance or
// Persistent entry records the horizon but has no read-side effect.
// Extending an absent or already-expired entry returns NOT_FOUND.
func (s *Store) ExtendTTL(tier Tier, key Key, minLedgers, maxLedgers int64) error {
	ek, err := key.Encode()
	if err != nil {
		return err
	}

	e, ok := s.tiers[tier][ek]
	cur := s.seq.LedgerSeq()
	if !ok || (tier == TierTemporary && cur > e.liveUntil) {
		return fault.New(fault.CodeNotFound, "extend TTL of absent key %s", key)
	}

	if e.liveUntil-cur < minLedgers {
		e.liveUntil = cur + maxLedgers
		s.tiers[tier][ek] = e
	}
	return nil
}

// Range calls fn for every live entry in the tier whose encoded key starts
// with prefix (empty prefix scans the whole tier). Iteration order is the
// sorted encoded-key order, so it is deterministic. fn returning false
// stops the scan.
func (s *Store) Range(tier Tier, prefix string, fn func(encodedKey string, value val.Value) bool) {
	cur := s.seq.LedgerSeq()

	keys := make([]string, 0, len(s.tiers[tier]))
	for k := range s.tiers[tier] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := s.tiers[tier][k]
		if tier == TierTemporary && cur > e.liveUntil {
			continue
		}
		if !fn(k, e.value) {
			return
		}
	}
}

// Free returns the number of entry slots remaining in the budget.
// Multi-key operations check this before their first write so a
// STORAGE_FULL failure cannot surface halfway through a logical mutation.
func (s *Store) Free() int {
	free := s.maxEntries - s.live()
	if free < 0 {
		return 0
	}
	return free
}

// live counts entries across all tiers without filtering expired
// Temporary entries; expired-but-unremoved entries still occupy budget
// until overwritten or removed.
func (s *Store) live() int {
	n := 0
	for i := range s.tiers {
		n += len(s.tiers[i])
	}
	return n
}
