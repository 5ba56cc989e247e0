package storage

import (
	"fmt"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

// Key is a namespaced storage key: a symbol plus zero or more value parts.
// The stable layout used by the ledger modules:
//
//	("BALANCE", principal)
//	("ROLE", principal, role)
//	("TOTAL_SUPPLY")
//	("PAUSED")
//	("EMERGENCY_STOP")
//	("REENTRANCY_GUARD")
//
// Keys encode to canonical JSON, so the same logical key always produces
// the same stored bytes across upgrades.
type Key struct {
	ns    val.Sym
	parts val.Vec
}

// NewKey creates a key under the given namespace symbol.
func NewKey(ns val.Sym, parts ...val.Value) Key {
	return Key{ns: ns, parts: val.Vec(parts)}
}

// Namespace returns the key's namespace symbol.
func (k Key) Namespace() val.Sym {
	return k.ns
}

// Encode returns the canonical byte representation of the key, used as the
// map index inside the store. Returns a SERIALIZATION_ERROR fault if any
// part cannot be canonically encoded.
func (k Key) Encode() (string, error) {
	full := make(val.Vec, 0, len(k.parts)+1)
	full = append(full, k.ns)
	full = append(full, k.parts...)

	data, err := val.MarshalCanonical(full)
	if err != nil {
		return "", fault.New(fault.CodeSerialization, "encode key %s: %v", k.ns, err)
	}
	return string(data), nil
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	if len(k.parts) == 0 {
		return string(k.ns)
	}
	return fmt.Sprintf("%s/%d parts", k.ns, len(k.parts))
}

// EncodedPrefix returns the encoded prefix shared by every key in a
// namespace. Used by Range callers to scan one namespace.
func EncodedPrefix(ns val.Sym) (string, error) {
	data, err := val.MarshalCanonical(ns)
	if err != nil {
		return "", fault.New(fault.CodeSerialization, "encode namespace %s: %v", ns, err)
	}
	return "[" + string(data), nil
}
