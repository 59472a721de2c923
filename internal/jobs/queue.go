package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forge-media/forge/pkg/log"
)

// Executor runs one job to completion and returns the path of the
// produced video. Stage and progress updates go through the status
// sink; the queue applies the terminal transition itself based on the
// returned error.
type Executor func(ctx context.Context, job *GenerationJob, status StatusSink) (string, error)

// StatusSink receives intermediate stage and progress updates for a
// running job.
type StatusSink interface {
	SetStatus(id string, stage Stage, progress int, message string)
}

type Queue struct {
	workerCount int
	maxJobs     int
	store       Store

	mu         sync.RWMutex
	jobs       map[string]*GenerationJob
	started    bool
	pendingIDs chan string
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewQueue(workerCount int, store Store) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	q := &Queue{
		workerCount: workerCount,
		maxJobs:     1000,
		store:       store,
		jobs:        make(map[string]*GenerationJob),
		pendingIDs:  make(chan string, 1024),
		stopCh:      make(chan struct{}),
	}
	q.hydrateFromStore(context.Background())
	return q
}

// Submit registers a new pending job and schedules it if workers are
// running.
func (q *Queue) Submit(req GenerationRequest) *GenerationJob {
	now := time.Now()
	job := &GenerationJob{
		ID:        uuid.NewString()[:8],
		Request:   req,
		Stage:     StagePending,
		Message:   "Queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	started := q.started
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	if started {
		q.enqueuePendingID(job.ID)
	}
	return snapshot
}

func (q *Queue) Get(id string) (*GenerationJob, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns snapshots of all jobs ordered from newest to oldest.
func (q *Queue) List() []*GenerationJob {
	q.mu.RLock()
	ret := make([]*GenerationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]string, 0)
	for id, job := range q.jobs {
		if job.Stage == StagePending {
			pending = append(pending, id)
		}
	}
	q.mu.Unlock()

	for _, id := range pending {
		q.enqueuePendingID(id)
	}

	for range q.workerCount {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case id := <-q.pendingIDs:
			job, ok := q.claimPending(id)
			if !ok {
				continue
			}

			resultPath, err := exec(context.Background(), job, q)
			if err != nil {
				q.markFailed(id, err)
				continue
			}
			q.markCompleted(id, resultPath)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() { q.pendingIDs <- id }()
	}
}

// claimPending moves a pending job into the probing stage so no other
// worker picks it up.
func (q *Queue) claimPending(id string) (*GenerationJob, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Stage != StagePending {
		q.mu.Unlock()
		return nil, false
	}
	job.Stage = StageProbing
	job.Message = "Analyzing audio"
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	return snapshot, true
}

// SetStatus applies an intermediate update. Backward stage moves and
// progress regressions are ignored so observers always see a
// monotonic timeline.
func (q *Queue) SetStatus(id string, stage Stage, progress int, message string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || !CanTransition(job.Stage, stage) || stage.Terminal() {
		q.mu.Unlock()
		return
	}
	job.Stage = stage
	if progress > job.Progress {
		job.Progress = progress
	}
	if message != "" {
		job.Message = message
	}
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
}

func (q *Queue) markCompleted(id string, resultPath string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Stage = StageCompleted
	job.Progress = 100
	job.Message = "Video ready"
	job.Error = ""
	job.ResultPath = resultPath
	job.UpdatedAt = time.Now()
	pruned := q.pruneOverflowLocked()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	q.deleteJobsFromStore(pruned)
}

func (q *Queue) markFailed(id string, err error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Stage = StageFailed
	if err != nil {
		job.Error = err.Error()
	}
	job.Message = "Generation failed"
	job.UpdatedAt = time.Now()
	pruned := q.pruneOverflowLocked()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	q.deleteJobsFromStore(pruned)
}

// PruneOlderThan removes terminal jobs whose last update predates the
// cutoff and returns snapshots so the caller can remove their
// artifacts.
func (q *Queue) PruneOlderThan(cutoff time.Time) []*GenerationJob {
	q.mu.Lock()
	pruned := make([]*GenerationJob, 0)
	for id, job := range q.jobs {
		if !job.Stage.Terminal() || !job.UpdatedAt.Before(cutoff) {
			continue
		}
		pruned = append(pruned, cloneJob(job))
		delete(q.jobs, id)
	}
	q.mu.Unlock()

	ids := make([]string, 0, len(pruned))
	for _, job := range pruned {
		ids = append(ids, job.ID)
	}
	q.deleteJobsFromStore(ids)
	return pruned
}

func (q *Queue) pruneOverflowLocked() []string {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil || !job.Stage.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := len(q.jobs) - q.maxJobs
	if toRemove <= 0 {
		return nil
	}
	if toRemove > len(terminal) {
		toRemove = len(terminal)
	}

	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		delete(q.jobs, terminal[i].id)
		pruned = append(pruned, terminal[i].id)
	}
	return pruned
}

func (q *Queue) deleteJobsFromStore(ids []string) {
	if q.store == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := q.store.DeleteJob(context.Background(), id); err != nil {
			log.Error("Failed to delete pruned job %s from store: %v", id, err)
		}
	}
}

// hydrateFromStore restores persisted jobs. Jobs that were mid-flight
// when the process died cannot be resumed and are marked failed.
func (q *Queue) hydrateFromStore(ctx context.Context) {
	if q.store == nil {
		return
	}
	loaded, err := q.store.LoadJobs(ctx)
	if err != nil {
		log.Error("Failed to load jobs from store: %v", err)
		return
	}

	now := time.Now()
	toPersist := make([]*GenerationJob, 0)
	q.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		job := cloneJob(raw)
		if !job.Stage.Terminal() && job.Stage != StagePending {
			job.Stage = StageFailed
			job.Error = "interrupted by restart"
			job.Message = "Generation failed"
			job.UpdatedAt = now
			toPersist = append(toPersist, cloneJob(job))
		}
		q.jobs[job.ID] = job
	}
	q.mu.Unlock()

	for _, job := range toPersist {
		q.persistJob(job)
	}
}

func (q *Queue) persistJob(job *GenerationJob) {
	if q.store == nil || job == nil {
		return
	}
	if err := q.store.UpsertJob(context.Background(), job); err != nil {
		log.Error("Failed to persist job %s: %v", job.ID, err)
	}
}

func cloneJob(job *GenerationJob) *GenerationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
