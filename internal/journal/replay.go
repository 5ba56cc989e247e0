package journal

import (
	"bytes"
	"context"
	"fmt"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/lifecycle"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

// Builder constructs the operation table and lifecycle machine over a
// fresh environment. Replay calls it exactly once; the builder must
// register the same operations, in the same order, as the process that
// produced the journal.
type Builder func(env *host.Env) (*contract.Registry, *lifecycle.Machine)

// Replay re-executes every journaled invocation against a fresh
// environment and verifies the journal describes a deterministic history:
// each invocation must settle with the same status and result it was
// journaled with, and the replayed event stream must match the journaled
// one byte for byte.
//
// On success the returned environment holds the reconstructed state, with
// its clock positioned exactly where the journaled history left off.
//
// Engine limits persisted in the meta table are applied so resource
// faults reproduce exactly. Extra env options are forwarded to the fresh
// environment; attaching this journal as the event sink is safe because
// replayed events re-insert idempotently.
func (j *Journal) Replay(ctx context.Context, build Builder, envOpts ...host.Option) (*host.Env, error) {
	recs, err := j.ReadInvocations(ctx)
	if err != nil {
		return nil, err
	}

	tokens := make([]string, len(recs))
	for i, rec := range recs {
		tokens[i] = rec.Token
	}

	maxEntries, err := j.MetaInt(ctx, MetaMaxEntries)
	if err != nil {
		return nil, err
	}
	if maxEntries > 0 {
		envOpts = append(envOpts, host.WithStorageOptions(storage.WithMaxEntries(maxEntries)))
	}
	maxSteps, err := j.MetaInt(ctx, MetaMaxSteps)
	if err != nil {
		return nil, err
	}
	var dispOpts []contract.Option
	if maxSteps > 0 {
		dispOpts = append(dispOpts, contract.WithMaxSteps(maxSteps))
	}

	env := host.NewEnv(envOpts...)
	reg, life := build(env)
	disp := contract.New(env, reg, life, host.NewFixedGenerator(tokens...), dispOpts...)

	for _, rec := range recs {
		result, ierr := disp.Invoke(rec.Caller, rec.Op, rec.Args)

		status := "ok"
		if ierr != nil {
			status = string(fault.CodeOf(ierr))
			if status == "" {
				status = "error"
			}
		}
		if status != rec.Status {
			return nil, fmt.Errorf("replay divergence at tx %s (%s): settled %q, journal has %q",
				rec.Token, rec.Op, status, rec.Status)
		}
		if ierr == nil {
			same, err := canonicalEqual(result, rec.Result)
			if err != nil {
				return nil, fmt.Errorf("replay tx %s: %w", rec.Token, err)
			}
			if !same {
				return nil, fmt.Errorf("replay divergence at tx %s (%s): result differs from journal",
					rec.Token, rec.Op)
			}
		}
	}

	journaled, err := j.ReadEvents(ctx)
	if err != nil {
		return nil, err
	}
	replayed := env.Events.Events()
	if len(replayed) != len(journaled) {
		return nil, fmt.Errorf("replay divergence: %d events replayed, journal has %d",
			len(replayed), len(journaled))
	}
	for i, want := range journaled {
		got := replayed[i]
		if got.Seq != want.Seq || got.Topic != want.Topic {
			return nil, fmt.Errorf("replay divergence at event %d: got (%d, %q), journal has (%d, %q)",
				i, got.Seq, got.Topic, want.Seq, want.Topic)
		}
		same, err := canonicalEqual(got.Payload, want.Payload)
		if err != nil {
			return nil, fmt.Errorf("replay event %d: %w", want.Seq, err)
		}
		if !same {
			return nil, fmt.Errorf("replay divergence at event %d (%q): payload differs from journal",
				want.Seq, want.Topic)
		}
	}

	return env, nil
}

// canonicalEqual compares two values by their canonical encoding. The
// journal round-trip widens Sym and Addr to Str, so structural equality
// would report false mismatches; the canonical bytes are the identity
// that matters.
func canonicalEqual(a, b val.Value) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	ab, err := val.MarshalCanonical(a)
	if err != nil {
		return false, err
	}
	bb, err := val.MarshalCanonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}
