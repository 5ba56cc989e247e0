// Package harness runs YAML-defined conformance scenarios against a real
// dispatcher and compares execution traces with golden files.
//
// A scenario describes an optional genesis manifest, a flow of
// invocations with expected outcomes, and assertions over the final
// state. Execution uses deterministic transaction tokens and a fresh
// in-memory environment per scenario, so the resulting trace is
// byte-stable and suitable for golden comparison.
package harness
