package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/keel/internal/manifest"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.yaml>",
		Short: "Validate a genesis manifest without applying it",
		Long: `Validate a genesis manifest without applying it.

The manifest is decoded and checked against the schema. Nothing is
written.

Example:
  keel validate genesis.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	m, err := manifest.Load(path)
	if err != nil {
		formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitFailure, "validate manifest", err)
	}

	return formatter.Success(map[string]any{
		"token":  m.Token.Symbol,
		"admin":  m.Admin,
		"grants": len(m.Grants),
	})
}
