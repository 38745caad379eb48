package workers

import (
	"context"
	"direct-chat/domain"
	"log/slog"
	"time"
)

type PresenceStats interface {
	Online(exclude ...domain.UserID) []domain.UserID
	ConnectionCount() int
}

// PresenceReporter logs the number of online users and open connections at a fixed interval.
type PresenceReporter struct {
	log      *slog.Logger
	stats    PresenceStats
	interval time.Duration
}

func NewPresenceReporter(stats PresenceStats, interval time.Duration, log *slog.Logger) *PresenceReporter {
	return &PresenceReporter{log: log, stats: stats, interval: interval}
}

// Run reports until the context is cancelled, with a last report on the way out.
func (w *PresenceReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *PresenceReporter) report() {
	w.log.Info("Presence",
		"online_users", len(w.stats.Online()),
		"connections", w.stats.ConnectionCount())
}
