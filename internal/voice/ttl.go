package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule sweeps expired clips every ten minutes.
const DefaultPruneSchedule = "@every 10m"

// StartPruner removes clips older than ttl on schedule until ctx is done.
func StartPruner(ctx context.Context, clips *ClipStore, ttl time.Duration, schedule string) error {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { pruneExpired(clips, ttl) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	slog.Info("clip pruner started", "schedule", schedule, "ttl", ttl)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		slog.Info("clip pruner shutting down", "reason", ctx.Err())
	}()
	return nil
}

func pruneExpired(clips *ClipStore, ttl time.Duration) {
	removed := clips.Prune(time.Now().Add(-ttl))
	if removed > 0 {
		slog.Info("clip pruner removed expired clips", "count", removed, "remaining", clips.Len())
	}
}
