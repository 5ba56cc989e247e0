package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keel/internal/journal"
	"github.com/roach88/keel/internal/val"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Topic string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List journaled events",
		Long: `List journaled events in sequence order.

Example:
  keel events --topic transfer`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Topic, "topic", "", "only events with this topic")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	j, err := journal.Open(opts.DB)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer j.Close()

	events, err := j.ReadEvents(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read events", err)
	}

	type row struct {
		Seq     int64  `json:"seq"`
		Topic   string `json:"topic"`
		Payload string `json:"payload"`
	}
	rows := []row{}
	for _, e := range events {
		if opts.Topic != "" && e.Topic != opts.Topic {
			continue
		}
		payload, err := val.MarshalCanonical(e.Payload)
		if err != nil {
			return WrapExitError(ExitFailure, "encode payload", err)
		}
		rows = append(rows, row{Seq: e.Seq, Topic: e.Topic, Payload: string(payload)})
	}

	if opts.Format == "json" {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		return formatter.Success("no events")
	}
	var sb strings.Builder
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d\t%s\t%s", r.Seq, r.Topic, r.Payload)
	}
	return formatter.Success(sb.String())
}
