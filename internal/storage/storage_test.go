package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

// fakeSeq is a settable Sequencer for driving TTL expiry in tests.
type fakeSeq struct {
	seq int64
}

func (f *fakeSeq) LedgerSeq() int64 { return f.seq }

func TestStore_GetSetRoundTrip(t *testing.T) {
	s := New(&fakeSeq{})
	key := NewKey("BALANCE", val.Addr("GALICE"))

	require.NoError(t, s.Set(TierPersistent, key, val.I64(100)))

	v, ok, err := s.Get(TierPersistent, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, val.I64(100), v)
}

func TestStore_AbsentKey(t *testing.T) {
	s := New(&fakeSeq{})

	_, ok, err := s.Get(TierPersistent, NewKey("TOTAL_SUPPLY"))
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := s.Has(TierInstance, NewKey("PAUSED"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_TiersAreIndependent(t *testing.T) {
	s := New(&fakeSeq{})
	key := NewKey("COUNTER")

	require.NoError(t, s.Set(TierInstance, key, val.I64(1)))
	require.NoError(t, s.Set(TierPersistent, key, val.I64(2)))

	v, ok, err := s.Get(TierInstance, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, val.I64(1), v)

	v, ok, err = s.Get(TierPersistent, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, val.I64(2), v)

	_, ok, err = s.Get(TierTemporary, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Remove(t *testing.T) {
	s := New(&fakeSeq{})
	key := NewKey("ROLE", val.Addr("GALICE"), val.Sym("minter"))

	require.NoError(t, s.Set(TierPersistent, key, val.Bool(true)))
	require.NoError(t, s.Remove(TierPersistent, key))

	has, err := s.Has(TierPersistent, key)
	require.NoError(t, err)
	assert.False(t, has)

	// Removing an absent key is a no-op
	require.NoError(t, s.Remove(TierPersistent, key))
}

func TestStore_TemporaryExpiry(t *testing.T) {
	seq := &fakeSeq{seq: 10}
	s := New(seq)
	key := NewKey("NONCE", val.I64(7))

	require.NoError(t, s.Set(TierTemporary, key, val.Str("x")))

	// Alive through the full default TTL
	seq.seq = 10 + DefaultTemporaryTTL
	_, ok, err := s.Get(TierTemporary, key)
	require.NoError(t, err)
	assert.True(t, ok, "entry should be alive at its live-until sequence")

	// One sequence later it reads as absent, never stale
	seq.seq++
	_, ok, err = s.Get(TierTemporary, key)
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must read as absent")

	has, err := s.Has(TierTemporary, key)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_ExtendTTL(t *testing.T) {
	seq := &fakeSeq{seq: 100}
	s := New(seq)
	key := NewKey("NONCE", val.I64(1))

	require.NoError(t, s.Set(TierTemporary, key, val.Str("x")))

	// Remaining life is DefaultTemporaryTTL; threshold 50 > remaining,
	// so life resets to 100 sequences from now.
	require.NoError(t, s.ExtendTTL(TierTemporary, key, 50, 100))

	seq.seq = 200
	_, ok, err := s.Get(TierTemporary, key)
	require.NoError(t, err)
	assert.True(t, ok, "entry should live through the extended horizon")

	seq.seq = 201
	_, ok, err = s.Get(TierTemporary, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ExtendTTL_NoOpAboveThreshold(t *testing.T) {
	seq := &fakeSeq{}
	s := New(seq)
	key := NewKey("NONCE", val.I64(2))

	require.NoError(t, s.Set(TierTemporary, key, val.Str("x")))

	// Remaining life (16) already exceeds the threshold (5), so the
	// horizon must NOT shrink to maxLedgers (8).
	require.NoError(t, s.ExtendTTL(TierTemporary, key, 5, 8))

	seq.seq = DefaultTemporaryTTL
	_, ok, err := s.Get(TierTemporary, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_ExtendTTL_AbsentKey(t *testing.T) {
	seq := &fakeSeq{}
	s := New(seq)

	err := s.ExtendTTL(TierTemporary, NewKey("NONCE", val.I64(3)), 10, 20)
	assert.True(t, fault.Is(err, fault.CodeNotFound))

	// An expired entry counts as absent for extension purposes
	key := NewKey("NONCE", val.I64(4))
	require.NoError(t, s.Set(TierTemporary, key, val.Str("x")))
	seq.seq = DefaultTemporaryTTL + 1
	err = s.ExtendTTL(TierTemporary, key, 10, 20)
	assert.True(t, fault.Is(err, fault.CodeNotFound))
}

func TestStore_StorageFull(t *testing.T) {
	s := New(&fakeSeq{}, WithMaxEntries(1))

	require.NoError(t, s.Set(TierPersistent, NewKey("A"), val.I64(1)))

	err := s.Set(TierPersistent, NewKey("B"), val.I64(2))
	assert.True(t, fault.Is(err, fault.CodeStorageFull))

	// Overwriting an existing entry does not consume budget
	require.NoError(t, s.Set(TierPersistent, NewKey("A"), val.I64(3)))
}

func TestStore_Range_DeterministicOrder(t *testing.T) {
	s := New(&fakeSeq{})

	for _, who := range []string{"GCHARLIE", "GALICE", "GBOB"} {
		require.NoError(t, s.Set(TierPersistent, NewKey("BALANCE", val.Addr(who)), val.I64(1)))
	}
	require.NoError(t, s.Set(TierPersistent, NewKey("TOTAL_SUPPLY"), val.I64(3)))

	prefix, err := EncodedPrefix("BALANCE")
	require.NoError(t, err)

	var got []string
	s.Range(TierPersistent, prefix, func(k string, _ val.Value) bool {
		got = append(got, k)
		return true
	})

	require.Len(t, got, 3, "TOTAL_SUPPLY must not match the BALANCE prefix")
	assert.Equal(t, `["BALANCE","GALICE"]`, got[0])
	assert.Equal(t, `["BALANCE","GBOB"]`, got[1])
	assert.Equal(t, `["BALANCE","GCHARLIE"]`, got[2])
}

func TestStore_Range_SkipsExpired(t *testing.T) {
	seq := &fakeSeq{}
	s := New(seq)

	require.NoError(t, s.Set(TierTemporary, NewKey("NONCE", val.I64(1)), val.Str("x")))
	seq.seq = DefaultTemporaryTTL + 1
	require.NoError(t, s.Set(TierTemporary, NewKey("NONCE", val.I64(2)), val.Str("y")))

	count := 0
	s.Range(TierTemporary, "", func(string, val.Value) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count)
}
