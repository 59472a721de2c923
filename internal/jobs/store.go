package jobs

import "context"

// Store persists jobs across restarts. Implementations must be safe
// for concurrent use.
type Store interface {
	LoadJobs(ctx context.Context) ([]*GenerationJob, error)
	UpsertJob(ctx context.Context, job *GenerationJob) error
	DeleteJob(ctx context.Context, id string) error
}
