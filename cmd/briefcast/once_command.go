package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"briefcast/internal/daemon"
	"briefcast/internal/workflow"
)

func newOnceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "once <" + strings.Join(workflow.TaskNames, "|") + ">",
		Short:     "Run one task immediately and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: workflow.TaskNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.ToLower(strings.TrimSpace(args[0]))
			if !slices.Contains(workflow.TaskNames, task) {
				return fmt.Errorf("unknown task %q (expected one of %s)", args[0], strings.Join(workflow.TaskNames, ", "))
			}

			out := cmd.OutOrStdout()
			progress := newStepProgress(out, task, isTerminal(out))
			opts := daemon.BuildOptions{
				ManagerOptions: []workflow.ManagerOption{workflow.WithObserver(progress.observe)},
			}
			return ctx.withPipeline(opts, func(p *daemon.Pipeline) error {
				err := p.Manager.RunOnce(cmd.Context(), task)
				progress.finish()
				return err
			})
		},
	}
}

// stepProgress reports task steps, as a spinner on terminals and as plain
// lines otherwise.
type stepProgress struct {
	mu    sync.Mutex
	out   io.Writer
	task  string
	bar   *progressbar.ProgressBar
	lines []string
}

func newStepProgress(out io.Writer, task string, tty bool) *stepProgress {
	p := &stepProgress{out: out, task: task}
	if tty {
		p.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(task),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("steps"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return p
}

func (p *stepProgress) observe(ev workflow.StageEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := formatStep(ev)
	if p.bar == nil {
		fmt.Fprintln(p.out, line)
		return
	}
	p.lines = append(p.lines, line)
	p.bar.Describe(p.task + ": " + ev.Step)
	_ = p.bar.Add(1)
}

func (p *stepProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	for _, line := range p.lines {
		fmt.Fprintln(p.out, line)
	}
}

func formatStep(ev workflow.StageEvent) string {
	switch {
	case ev.Err != nil:
		return fmt.Sprintf("%-28s failed: %v", ev.Step, ev.Err)
	case ev.Report.Stage != "":
		return fmt.Sprintf("%-28s %d attempted, %d succeeded, %d failed, %d skipped (%s)",
			ev.Step, ev.Report.Attempted, ev.Report.Succeeded, ev.Report.Failed, ev.Report.Skipped,
			ev.Report.Duration.Round(time.Millisecond))
	default:
		return fmt.Sprintf("%-28s done", ev.Step)
	}
}
