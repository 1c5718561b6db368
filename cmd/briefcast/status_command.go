package main

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"briefcast/internal/briefindex"
	"briefcast/internal/config"
	"briefcast/internal/daemonctl"
	"briefcast/internal/preflight"
	"briefcast/internal/queue"
	"briefcast/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline, queue, and readiness status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				reqCtx := cmd.Context()

				fmt.Fprintln(out, renderSectionHeader("Pipeline"))
				if running, pid := daemonctl.ProcessInfo(cfg); running {
					fmt.Fprintln(out, renderStatusLine("Process", statusOK, "running (pid "+strconv.Itoa(pid)+")", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Process", statusInfo, "stopped", colorize))
				}
				configNote := ctx.configPath
				if !ctx.configExists {
					configNote += " (defaults)"
				}
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configNote, colorize))
				fmt.Fprintln(out, renderStatusLine("Sources", statusInfo, strconv.Itoa(len(cfg.Sources.URLs)), colorize))
				fmt.Fprintln(out)

				stats, err := store.Stats(reqCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSectionHeader("Queue"))
				fmt.Fprintln(out, renderStageTable(stats))
				if len(stats.BySource) > 0 {
					fmt.Fprintln(out, renderSourceTable(stats))
				}
				fmt.Fprintln(out)

				fmt.Fprintln(out, renderSectionHeader("Storage"))
				db, err := store.CheckHealth(reqCtx)
				switch {
				case err != nil:
					fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
				case !db.Healthy():
					fmt.Fprintln(out, renderStatusLine("Database", statusWarn, databaseProblem(db), colorize))
				default:
					fmt.Fprintln(out, renderStatusLine("Database", statusOK, fmt.Sprintf("schema v%d, %d entries", db.SchemaVersion, db.TotalEntries), colorize))
				}
				for _, dir := range []struct{ label, path string }{
					{"Audio", cfg.Paths.AudioDir},
					{"Output", cfg.Paths.OutputDir},
					{"Temporary", cfg.Paths.TemporaryDir},
				} {
					fmt.Fprintln(out, renderStatusLine(dir.label, statusInfo, humanize.Bytes(uint64(diskUsage(dir.path)))+" in "+dir.path, colorize))
				}
				renderIndexLine(out, cfg, colorize)
				fmt.Fprintln(out)

				results := preflight.RunAll(reqCtx, cfg)
				if checkLLM {
					results = append(results, preflight.CheckLLM(reqCtx, cfg))
				}
				fmt.Fprintln(out, renderSectionHeader("Readiness"))
				for _, h := range workflow.Readiness(reqCtx, results) {
					kind := statusOK
					if !h.Ready {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(h.Name, kind, h.Detail, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Also send a test completion to the LLM endpoint")
	return cmd
}

func renderStageTable(stats queue.Stats) string {
	rows := [][]string{{"total", strconv.Itoa(stats.Total), "", ""}}
	done := map[queue.Stage]int{
		queue.StageDownload:   stats.Downloaded,
		queue.StageTranscribe: stats.Transcribed,
		queue.StageSummarize:  stats.Summarized,
		queue.StagePush:       stats.Pushed,
	}
	for _, s := range queue.Stages {
		rows = append(rows, []string{string(s), "", strconv.Itoa(stats.Waiting(s)), strconv.Itoa(done[s])})
	}
	if stats.DownloadErrs > 0 {
		rows = append(rows, []string{"download errors", strconv.Itoa(stats.DownloadErrs), "", ""})
	}
	return renderTable([]string{"Stage", "Entries", "Waiting", "Done"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight})
}

func renderSourceTable(stats queue.Stats) string {
	sources := make([]string, 0, len(stats.BySource))
	for source := range stats.BySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	rows := make([][]string, 0, len(sources))
	for _, source := range sources {
		rows = append(rows, []string{truncate(source, 60), strconv.Itoa(stats.BySource[source])})
	}
	return renderTable([]string{"Source", "Entries"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderIndexLine(out io.Writer, cfg *config.Config, colorize bool) {
	idx, err := briefindex.OpenReadOnly(cfg.Paths.IndexDir, 2*time.Second)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Brief index", statusInfo, "unavailable ("+err.Error()+")", colorize))
		return
	}
	defer idx.Close()
	count, err := idx.Count()
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Brief index", statusWarn, err.Error(), colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Brief index", statusOK, humanize.Comma(int64(count))+" briefs", colorize))
}

func databaseProblem(db queue.DatabaseHealth) string {
	var problems []string
	if db.Error != "" {
		problems = append(problems, db.Error)
	}
	if len(db.MissingColumns) > 0 {
		problems = append(problems, "missing columns: "+strings.Join(db.MissingColumns, ", "))
	}
	if !db.IntegrityCheck {
		problems = append(problems, "integrity check failed")
	}
	if len(problems) == 0 {
		problems = append(problems, fmt.Sprintf("schema v%d", db.SchemaVersion))
	}
	return strings.Join(problems, "; ")
}

func diskUsage(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
