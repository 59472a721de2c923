package jobs

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/forge-media/forge/pkg/log"
)

// Janitor periodically drops terminal jobs past the retention window
// and removes the video files they produced.
type Janitor struct {
	queue     *Queue
	retention time.Duration
	now       func() time.Time
}

func NewJanitor(queue *Queue, retention time.Duration) *Janitor {
	return &Janitor{
		queue:     queue,
		retention: retention,
		now:       time.Now,
	}
}

// Schedule registers the sweep on the given cron. The cron itself is
// started and stopped by the caller.
func (j *Janitor) Schedule(c *cron.Cron, expr string) error {
	_, err := c.AddFunc(expr, j.Sweep)
	return err
}

// Sweep removes expired jobs and their artifacts. Safe to call
// concurrently with job execution.
func (j *Janitor) Sweep() {
	if j.retention <= 0 {
		return
	}
	cutoff := j.now().Add(-j.retention)
	pruned := j.queue.PruneOlderThan(cutoff)
	for _, job := range pruned {
		if job.ResultPath == "" {
			continue
		}
		if err := os.Remove(job.ResultPath); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove artifact for expired job %s: %v", job.ID, err)
			continue
		}
		log.Info("Removed expired job %s and its artifact", job.ID)
	}
	if len(pruned) > 0 {
		log.Info("Janitor pruned %d expired job(s)", len(pruned))
	}
}
