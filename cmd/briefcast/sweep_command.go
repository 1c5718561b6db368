package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"briefcast/internal/daemon"
	"briefcast/internal/retention"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Apply retention policies and remove orphaned artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(daemon.BuildOptions{DryRun: dryRun}, func(p *daemon.Pipeline) error {
				report, pruneErr := p.Sweeper.Prune(cmd.Context())
				reconciled, reconcileErr := p.Sweeper.Reconcile(cmd.Context())
				renderSweep(cmd.OutOrStdout(), dryRun, report, reconciled)
				return errors.Join(pruneErr, reconcileErr)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting anything")
	return cmd
}

func renderSweep(out io.Writer, dryRun bool, report retention.Report, reconciled retention.ReconcileReport) {
	verb := "Removed"
	if dryRun {
		verb = "Would remove"
		fmt.Fprintln(out, "Dry run: nothing was deleted")
	}
	rows := [][]string{
		{"Stale pending entries", fmt.Sprint(report.StaleDeleted)},
		{"Entries pruned by policy", fmt.Sprint(report.Pruned)},
		{"Entries retained", fmt.Sprint(report.Retained)},
		{"Orphaned artifacts", fmt.Sprint(len(reconciled.Removed))},
		{"Space reclaimed", humanize.Bytes(uint64(report.Reclaimed + reconciled.Reclaimed))},
	}
	fmt.Fprintln(out, renderTable([]string{"Retention", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if dryRun && len(report.Planned) > 0 {
		fmt.Fprintf(out, "%s entries:\n", verb)
		for _, id := range report.Planned {
			fmt.Fprintf(out, "  %s\n", id)
		}
	}
	if len(reconciled.Removed) > 0 {
		fmt.Fprintf(out, "%s artifacts:\n", verb)
		for _, path := range reconciled.Removed {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
	errs := append(append([]retention.CleanupError(nil), report.Errors...), reconciled.Errors...)
	for _, e := range errs {
		fmt.Fprintf(out, "error: %s: %v\n", e.Path, e.Error)
	}
}
