package token

import (
	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

const nsMetadata = val.Sym("METADATA")

// Metadata is the immutable token descriptor written once by initialize.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals int64
}

func (t *Token) setMetadata(env *host.Env, m Metadata) error {
	return env.Store.Set(storage.TierInstance, storage.NewKey(nsMetadata), val.Map{
		"name":     val.Str(m.Name),
		"symbol":   val.Str(m.Symbol),
		"decimals": val.I64(m.Decimals),
	})
}

func (t *Token) metadata(c *contract.Ctx) (val.Value, error) {
	v, ok, err := c.Env.Store.Get(storage.TierInstance, storage.NewKey(nsMetadata))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.NewOp(fault.CodeNotFound, "token.metadata", "token is not initialized")
	}
	return v, nil
}
