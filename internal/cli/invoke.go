package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Caller string
	Args   string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <operation>",
		Short: "Invoke an operation against the journaled instance",
		Long: `Invoke an operation against the journaled instance.

State is rebuilt by replaying the journal, the operation executes, and
the settled invocation is appended to the journal.

Example:
  keel invoke token.transfer --caller GALICE --args '{"to":"GBOB","amount":250}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "invoking principal address (required)")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "operation arguments as JSON")
	cmd.MarkFlagRequired("caller")

	return cmd
}

func runInvoke(opts *InvokeOptions, op string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	args, err := val.UnmarshalMap([]byte(opts.Args))
	if err != nil {
		formatter.Error(ErrCodeArgs, "invalid --args JSON: "+err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse args", err)
	}

	eng, err := openEngine(cmd.Context(), opts.RootOptions)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer eng.Close()

	result, err := eng.disp.Invoke(val.Addr(opts.Caller), op, args)
	if err != nil {
		code := string(fault.CodeOf(err))
		formatter.Error(ErrCodeFault, err.Error(), map[string]any{"fault": code})
		return WrapExitError(ExitFailure, "invoke "+op, err)
	}

	encoded, err := val.MarshalCanonical(result)
	if err != nil {
		return WrapExitError(ExitFailure, "encode result", err)
	}
	return formatter.Success(map[string]any{
		"op":     op,
		"caller": opts.Caller,
		"result": string(encoded),
		"ledger": eng.env.Clock.LedgerSeq(),
	})
}
