package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/event"
	"github.com/snagd/snagd/pkg/logger"
	"github.com/snagd/snagd/pkg/worker"
)

var log = logger.Get("JobServ")

type (
	// Runner executes one download from acquisition through upload.
	Runner interface {
		Run(ctx context.Context, jobID uuid.UUID, req *download.Request) (*download.ResponseRecord, error)
	}

	// Historian persists job outcomes. A nil Historian disables
	// persistence, which is how the service runs without a database.
	Historian interface {
		Created(jobID uuid.UUID, mediaURL string)
		Started(jobID uuid.UUID)
		Completed(jobID uuid.UUID, record *download.ResponseRecord)
		Failed(jobID uuid.UUID, reason string)
	}

	Config struct {
		Parallelism       int `yaml:"parallelism" env:"JOB_PARALLELISM" env-default:"2"`
		JobTimeoutSeconds int `yaml:"job_timeout_seconds" env:"JOB_TIMEOUT_SECONDS" env-default:"900"`
	}

	// service owns the download job queue. Queued jobs are claimed by
	// pool workers; each claim runs the full pipeline under a deadline
	// derived from the service's base context.
	service struct {
		*sync.Mutex

		runner     Runner
		eventBus   event.EventCoordinator
		cache      *ResultCache
		notifier   *WebhookNotifier
		historian  Historian
		config     Config
		jobs       []*DownloadJob
		workerPool worker.WorkerPool

		baseCtx context.Context
	}
)

func New(config Config, runner Runner, eventBus event.EventCoordinator, cache *ResultCache, historian Historian) *service {
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}

	service := &service{
		Mutex:      &sync.Mutex{},
		runner:     runner,
		eventBus:   eventBus,
		cache:      cache,
		notifier:   NewWebhookNotifier(),
		historian:  historian,
		config:     config,
		jobs:       make([]*DownloadJob, 0),
		workerPool: *worker.NewWorkerPool(),
		baseCtx:    context.Background(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("download-worker-%d", i)
		service.workerPool.PushWorker(worker.NewWorker(label, service.PerformJob))
	}

	return service
}

// Run starts the worker pool and blocks until the provided context is
// cancelled. Jobs running at shutdown see their contexts cancelled.
func (service *service) Run(ctx context.Context) error {
	service.Lock()
	service.baseCtx = ctx
	service.Unlock()

	if err := service.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start job worker pool: %w", err)
	}

	<-ctx.Done()
	service.workerPool.Close()
	return nil
}

// Queue accepts a validated request and returns the ID of the job
// created for it. A cached result short-circuits the queue entirely:
// the job is born COMPLETE and its lifecycle events fire immediately.
func (service *service) Queue(req *download.Request) uuid.UUID {
	jobID := uuid.New()
	job := &DownloadJob{
		ID:       jobID,
		Request:  req,
		State:    PENDING,
		QueuedAt: time.Now(),
	}

	if service.historian != nil {
		service.historian.Created(jobID, req.MediaURL)
	}

	if cached := service.lookupCache(req); cached != nil {
		log.Infof("Job %s: answered from result cache (%s)\n", jobID, req.MediaURL)

		now := time.Now()
		job.State = COMPLETE
		job.Result = cached
		job.FromCache = true
		job.StartedAt = &now
		job.FinishedAt = &now

		service.appendJob(job)
		service.finalizeJob(job)
		return jobID
	}

	service.appendJob(job)
	service.eventBus.Dispatch(event.JobUpdateEvent, jobID)
	service.workerPool.WakeupWorkers()

	return jobID
}

// PerformJob is the worker function run by the pool. It claims the
// first PENDING job, runs the pipeline against it, and records the
// outcome. The claim semantics mean returning false when no work was
// found, which sends the worker back to sleep.
func (service *service) PerformJob(w worker.Worker) (bool, error) {
	job := service.claimPendingJob()
	if job == nil {
		return false, nil
	}

	service.eventBus.Dispatch(event.JobUpdateEvent, job.ID)

	ctx := service.jobContext()
	timeout := time.Duration(service.config.JobTimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	record, err := service.runner.Run(ctx, job.ID, job.Request)

	service.Lock()
	now := time.Now()
	job.FinishedAt = &now
	if err != nil {
		job.State = FAILED
		job.FailureReason = download.ExplainFailure(err)
		log.Errorf("Job %s FAILED: %s\n", job.ID, job.FailureReason)
	} else {
		job.State = COMPLETE
		job.Result = record
		log.Emit(logger.SUCCESS, "Job %s complete (%s)\n", job.ID, job.Request.MediaURL)
	}
	service.Unlock()

	if err == nil {
		service.storeInCache(job.Request, record)
	}

	service.finalizeJob(job)
	return true, nil
}

// finalizeJob fires the completion side effects shared by both the
// normal and cache-hit paths: events, history, and webhook.
func (service *service) finalizeJob(job *DownloadJob) {
	service.eventBus.Dispatch(event.JobCompleteEvent, job.ID)

	if service.historian != nil {
		if job.State == COMPLETE {
			service.historian.Completed(job.ID, job.Result)
		} else {
			service.historian.Failed(job.ID, job.FailureReason)
		}
	}

	if job.Request.WebhookURL != "" {
		payload := webhookPayload{JobID: job.ID, State: job.State.String(), Endpoint: WebhookEndpoint}
		if job.State == COMPLETE {
			payload.Status = 200
			payload.Result = job.Result
		} else {
			payload.Status = 500
			payload.Error = job.FailureReason
		}

		go service.notifier.Notify(service.jobContext(), job.Request.WebhookURL, payload)
	}
}

func (service *service) GetJob(jobID uuid.UUID) *DownloadJob {
	service.Lock()
	defer service.Unlock()

	for _, job := range service.jobs {
		if job.ID == jobID {
			return job
		}
	}

	return nil
}

func (service *service) GetAllJobs() []*DownloadJob {
	service.Lock()
	defer service.Unlock()

	jobs := make([]*DownloadJob, len(service.jobs))
	copy(jobs, service.jobs)
	return jobs
}

func (service *service) appendJob(job *DownloadJob) {
	service.Lock()
	defer service.Unlock()

	service.jobs = append(service.jobs, job)
}

// claimPendingJob finds the first PENDING job and moves it to RUNNING
// before releasing the lock, preventing another worker from claiming it.
func (service *service) claimPendingJob() *DownloadJob {
	service.Lock()
	defer service.Unlock()

	for _, job := range service.jobs {
		if job.State == PENDING {
			now := time.Now()
			job.State = RUNNING
			job.StartedAt = &now

			if service.historian != nil {
				service.historian.Started(job.ID)
			}

			return job
		}
	}

	return nil
}

func (service *service) jobContext() context.Context {
	service.Lock()
	defer service.Unlock()

	return service.baseCtx
}

func (service *service) lookupCache(req *download.Request) *download.ResponseRecord {
	if service.cache == nil || !service.cache.Enabled() {
		return nil
	}

	return service.cache.Get(service.jobContext(), service.cache.Key(req))
}

func (service *service) storeInCache(req *download.Request, record *download.ResponseRecord) {
	if service.cache == nil || !service.cache.Enabled() {
		return
	}

	service.cache.Put(service.jobContext(), service.cache.Key(req), record)
}
