// Package counter is the smallest complete contract on the core: one
// operation incrementing an Instance-tier counter.
package counter

import (
	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

const counterKey val.Sym = "COUNTER"

// TTL thresholds applied to the counter's storage on every increment.
const (
	ttlThreshold = 50
	ttlExtendTo  = 100
)

// Register installs the counter operations into reg.
func Register(reg *contract.Registry) {
	reg.MustRegister(contract.Op{
		Name:     "counter.increment",
		Guarded:  true,
		Mutating: true,
		Handler:  increment,
	})
	reg.MustRegister(contract.Op{
		Name:    "counter.get",
		Handler: get,
	})
}

// increment bumps the counter and returns the new value. An absent
// counter starts at zero.
func increment(c *contract.Ctx) (val.Value, error) {
	key := storage.NewKey(counterKey)

	var count int64
	if v, ok, err := c.Env.Store.Get(storage.TierInstance, key); err != nil {
		return nil, err
	} else if ok {
		count, _ = val.AsI64(v)
	}
	c.Env.Log.Debug("count", "value", count)

	count++
	if err := c.Env.Store.Set(storage.TierInstance, key, val.I64(count)); err != nil {
		return nil, err
	}
	// Keep the entry alive for a while after this write.
	if err := c.Env.Store.ExtendTTL(storage.TierInstance, key, ttlThreshold, ttlExtendTo); err != nil {
		return nil, err
	}

	return val.I64(count), nil
}

func get(c *contract.Ctx) (val.Value, error) {
	v, ok, err := c.Env.Store.Get(storage.TierInstance, storage.NewKey(counterKey))
	if err != nil {
		return nil, err
	}
	if !ok {
		return val.I64(0), nil
	}
	return v, nil
}
