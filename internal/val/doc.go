// Package val defines the constrained value model shared by the storage
// engine, the event log, and the contract dispatch layer.
//
// Values are a sealed set of types: Str, Sym, I64, Bool, Addr, Vec, Map.
// Floats and nulls are unrepresentable, which keeps every serialization of
// core state byte-for-byte deterministic.
//
// MarshalCanonical produces RFC 8785 canonical JSON and is the only
// serialization used for storage key encoding and journal persistence.
// UnmarshalValue is its inverse for data arriving from the journal or the
// CLI; strings decode to Str and integers to I64 (the wire format cannot
// preserve the Sym/Addr distinction, so readers use AsAddr/AsSym at the
// point of use).
package val
