package corpus

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Loader produces a fresh snapshot.
type Loader func() *Store

// Reload loads a new snapshot and publishes it. A reload that yields no
// documents while the current snapshot has some keeps the current one.
func (h *Holder) Reload(load Loader) bool {
	next := load()
	prev := h.Current()
	if len(next.documents) == 0 && len(prev.documents) > 0 {
		slog.Warn("corpus reload produced no documents, keeping current snapshot",
			"current_documents", len(prev.documents))
		return false
	}
	h.Swap(next)
	slog.Info("corpus reloaded", "summary", Describe(next))
	return true
}

// StartReloadScheduler reloads the corpus on a 5-field cron schedule until
// ctx is cancelled. An empty schedule disables reloading.
func StartReloadScheduler(ctx context.Context, h *Holder, schedule string, loc *time.Location, load Loader) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		slog.Info("corpus reload disabled (corpus_reload_schedule not set)")
		return
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		slog.Error("invalid corpus_reload_schedule, reload disabled", "schedule", schedule, "error", err)
		return
	}
	if loc == nil {
		loc = time.Local
	}
	slog.Info("corpus reload scheduled", "cron", schedule)

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			slog.Info("next corpus reload", "at", next.Format("Mon Jan 2 15:04"), "in", next.Sub(now).Round(time.Minute))

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			h.Reload(load)
		}
	}()
}
