package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/journal"
	"github.com/roach88/keel/internal/lifecycle"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify the journal replays deterministically",
		Long: `Verify the journal replays deterministically.

Every journaled invocation is re-executed against a fresh environment.
The command fails if any invocation settles differently than recorded,
or if the replayed event stream diverges from the journaled one.

Example:
  keel replay --db keel.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	j, err := journal.Open(opts.DB)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer j.Close()

	build := func(env *host.Env) (*contract.Registry, *lifecycle.Machine) {
		tok, reg := buildRegistry(env)
		return reg, tok.Life
	}

	env, err := j.Replay(ctx, build)
	if err != nil {
		formatter.Error(ErrCodeDivergence, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay", err)
	}

	recs, err := j.ReadInvocations(ctx)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read journal", err)
	}

	return formatter.Success(map[string]any{
		"invocations": len(recs),
		"events":      env.Events.Len(),
		"ledger":      env.Clock.LedgerSeq(),
	})
}
