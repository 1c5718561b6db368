package preflight

import (
	"context"
	"fmt"
	"strings"

	"briefcast/internal/config"
	"briefcast/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the offline checks: directories, prompt templates,
// credentials, and external binaries.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, dir := range []struct{ name, path string }{
		{"Data directory", cfg.Paths.DataDir},
		{"Audio directory", cfg.Paths.AudioDir},
		{"Output directory", cfg.Paths.OutputDir},
		{"Temporary directory", cfg.Paths.TemporaryDir},
		{"Log directory", cfg.Paths.LogDir},
	} {
		results = append(results, CheckDirectoryAccess(dir.name, dir.path))
	}
	results = append(results, CheckPrompts(cfg.Paths.PromptDir))
	results = append(results, CheckCredentials(cfg))
	results = append(results, CheckNotifications(cfg))
	for _, bin := range CheckSystemDeps(ctx, cfg) {
		if bin.Optional && !bin.Found() {
			continue
		}
		results = append(results, Result{Name: bin.Name, Passed: bin.Found(), Detail: bin.Detail()})
	}
	return results
}

// Err folds failed results into one configuration error, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}
