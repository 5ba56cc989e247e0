package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/contracts/counter"
	"github.com/roach88/keel/internal/contracts/hello"
	"github.com/roach88/keel/internal/contracts/token"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/journal"
	"github.com/roach88/keel/internal/lifecycle"
)

// engine is a fully wired instance reconstructed from the journal: the
// replayed environment plus a live dispatcher whose invocations land back
// in the journal.
type engine struct {
	j    *journal.Journal
	env  *host.Env
	tok  *token.Token
	disp *contract.Dispatcher
}

// buildRegistry installs every shipped contract over env.
func buildRegistry(env *host.Env) (*token.Token, *contract.Registry) {
	tok := token.New(env)
	reg := contract.NewRegistry()
	tok.Register(reg)
	counter.Register(reg)
	hello.Register(reg)
	return tok, reg
}

// openEngine opens the journal at opts.DB, replays it to rebuild state,
// and wires a live dispatcher on top. The journal is attached as the
// event sink during replay; re-appended events are idempotent.
func openEngine(ctx context.Context, opts *RootOptions) (*engine, error) {
	j, err := journal.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open journal", err)
	}

	logger := slog.New(slog.DiscardHandler)
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var tok *token.Token
	var reg *contract.Registry
	build := func(env *host.Env) (*contract.Registry, *lifecycle.Machine) {
		tok, reg = buildRegistry(env)
		return reg, tok.Life
	}

	env, err := j.Replay(ctx, build, host.WithEventSink(j), host.WithLogger(logger))
	if err != nil {
		j.Close()
		return nil, WrapExitError(ExitFailure, "replay journal", err)
	}

	dispOpts := []contract.Option{contract.WithRecorder(j)}
	if maxSteps, merr := j.MetaInt(ctx, journal.MetaMaxSteps); merr == nil && maxSteps > 0 {
		dispOpts = append(dispOpts, contract.WithMaxSteps(maxSteps))
	}

	return &engine{
		j:    j,
		env:  env,
		tok:  tok,
		disp: contract.New(env, reg, tok.Life, host.UUIDv7Generator{}, dispOpts...),
	}, nil
}

func (e *engine) Close() error {
	return e.j.Close()
}
