package workflow

import (
	"context"

	"briefcast/internal/logging"
	"briefcast/internal/preflight"
	"briefcast/internal/queue"
	"briefcast/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Tasks       []TaskStatus
	QueueStats  queue.Stats
	Database    queue.DatabaseHealth
	Health      []stage.Health
	LastReports map[queue.Stage]Report
}

// Status returns queue counts, schedule state, and readiness checks.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:     m.running,
		LastReports: make(map[queue.Stage]Report, len(m.lastReports)),
	}
	for k, v := range m.lastReports {
		summary.LastReports[k] = v
	}
	m.mu.RUnlock()
	summary.Tasks = m.scheduler.Status()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	db, err := m.store.CheckHealth(ctx)
	if err != nil {
		m.logger.Warn("database health check failed", logging.Error(err))
	}
	summary.Database = db

	summary.Health = Readiness(ctx, preflight.RunAll(ctx, m.cfg))
	return summary
}

// Readiness converts preflight results into stage health records.
func Readiness(_ context.Context, results []preflight.Result) []stage.Health {
	health := make([]stage.Health, 0, len(results))
	for _, r := range results {
		health = append(health, stage.Check(r.Name, r.Passed, r.Detail))
	}
	return health
}
