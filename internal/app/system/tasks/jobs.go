// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes records started before cutoff. The organise-run and ledger
// stores satisfy it.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes records older than retention every interval.
//
// The TTL indexes expire records by the retention in force when they were
// written; this job applies the current retention to older records too.
func RetentionJob(name string, store Purger, retention, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) error {
			deleted, err := store.DeleteOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("purged expired records",
					zap.String("job", name),
					zap.Int64("deleted", deleted))
			}
			return nil
		},
	}
}
