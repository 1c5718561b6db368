package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"briefcast/internal/logging"
	"briefcast/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current run's log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := logging.CurrentLogPath(cfg.Paths.LogDir)
			emit := func(line string) { fmt.Fprintln(out, line) }

			if !follow {
				tail, _, err := logs.Last(path, lines)
				if err != nil {
					return err
				}
				if tail == nil {
					fmt.Fprintf(out, "No log at %s yet\n", path)
				}
				for _, line := range tail {
					emit(line)
				}
				return nil
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(signalCtx, path, lines, logs.DefaultPoll, emit)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	return cmd
}
