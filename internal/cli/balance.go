package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keel/internal/val"
)

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show balances and total supply",
		Long: `Show balances and total supply.

With an address, prints that principal's balance. Without, lists every
non-zero balance together with the total supply.

Example:
  keel balance GALICE`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			who := ""
			if len(args) == 1 {
				who = args[0]
			}
			return runBalance(rootOpts, who, cmd)
		},
	}

	return cmd
}

func runBalance(opts *RootOptions, who string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer eng.Close()

	if who != "" {
		b, err := eng.tok.Ledger.BalanceOf(val.Addr(who))
		if err != nil {
			formatter.Error(ErrCodeFault, err.Error(), nil)
			return WrapExitError(ExitFailure, "read balance", err)
		}
		if opts.Format == "json" {
			return formatter.Success(map[string]any{"address": who, "balance": b})
		}
		return formatter.Success(fmt.Sprintf("%s\t%d", who, b))
	}

	balances, err := eng.tok.Ledger.Balances()
	if err != nil {
		formatter.Error(ErrCodeFault, err.Error(), nil)
		return WrapExitError(ExitFailure, "read balances", err)
	}
	supply, err := eng.tok.Ledger.TotalSupply()
	if err != nil {
		formatter.Error(ErrCodeFault, err.Error(), nil)
		return WrapExitError(ExitFailure, "read supply", err)
	}

	if opts.Format == "json" {
		byAddr := make(map[string]int64, len(balances))
		for addr, b := range balances {
			byAddr[string(addr)] = b
		}
		return formatter.Success(map[string]any{"balances": byAddr, "supply": supply})
	}

	addrs := make([]string, 0, len(balances))
	for addr := range balances {
		addrs = append(addrs, string(addr))
	}
	sort.Strings(addrs)

	var sb strings.Builder
	for _, addr := range addrs {
		fmt.Fprintf(&sb, "%s\t%d\n", addr, balances[val.Addr(addr)])
	}
	fmt.Fprintf(&sb, "supply\t%d", supply)
	return formatter.Success(sb.String())
}
