package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/keel/internal/journal"
	"github.com/roach88/keel/internal/manifest"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <manifest.yaml>",
		Short: "Initialize a fresh instance from a genesis manifest",
		Long: `Initialize a fresh instance from a genesis manifest.

The manifest is validated, engine limits are persisted, and the
initialize and grant invocations are executed and journaled. A journal
that already contains history cannot be initialized again.

Example:
  keel init genesis.yaml --db keel.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInit(opts *RootOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	m, err := manifest.Load(manifestPath)
	if err != nil {
		formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load manifest", err)
	}
	formatter.VerboseLog("manifest %s validated", manifestPath)

	j, err := journal.Open(opts.DB)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer j.Close()

	_, ledgerSeq, err := j.LastSeqs(ctx)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read journal", err)
	}
	if ledgerSeq > 0 {
		msg := fmt.Sprintf("journal %s already contains history (ledger sequence %d)", opts.DB, ledgerSeq)
		formatter.Error(ErrCodeJournal, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	// Persist limits before the first invocation so every future replay
	// runs under the same budgets.
	if m.Limits != nil {
		if m.Limits.MaxEntries > 0 {
			if err := j.SetMeta(ctx, journal.MetaMaxEntries, strconv.Itoa(m.Limits.MaxEntries)); err != nil {
				return WrapExitError(ExitCommandError, "persist limits", err)
			}
		}
		if m.Limits.MaxSteps > 0 {
			if err := j.SetMeta(ctx, journal.MetaMaxSteps, strconv.Itoa(m.Limits.MaxSteps)); err != nil {
				return WrapExitError(ExitCommandError, "persist limits", err)
			}
		}
	}
	j.Close()

	eng, err := openEngine(ctx, opts)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer eng.Close()

	if err := m.Apply(eng.disp); err != nil {
		formatter.Error(ErrCodeFault, err.Error(), nil)
		return WrapExitError(ExitFailure, "apply manifest", err)
	}

	return formatter.Success(map[string]any{
		"db":     opts.DB,
		"token":  m.Token.Symbol,
		"admin":  m.Admin,
		"grants": len(m.Grants),
	})
}
