package internal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/api"
	"github.com/snagd/snagd/internal/database"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/event"
	"github.com/snagd/snagd/internal/ffmpeg"
	"github.com/snagd/snagd/internal/history"
	"github.com/snagd/snagd/internal/job"
	"github.com/snagd/snagd/internal/storage"
	"github.com/snagd/snagd/internal/ytdlp"
	"github.com/snagd/snagd/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	RestGateway interface {
		RunnableService
		BroadcastJobUpdate(uuid.UUID) error
		BroadcastJobComplete(uuid.UUID) error
	}

	JobService interface {
		RunnableService
		Queue(*download.Request) uuid.UUID
		GetJob(uuid.UUID) *job.DownloadJob
		GetAllJobs() []*job.DownloadJob
	}
)

// snagdImpl represents the top-level object for the server, and is
// responsible for initialising services, stores and event handling.
type snagdImpl struct {
	eventBus        event.EventCoordinator
	activityService *activityService
	config          SnagdConfig

	overrides   *download.OverrideTable
	pipeline    *download.Pipeline
	restGateway RestGateway
	jobService  JobService
	db          database.Manager
	historian   *historian
}

func New(config SnagdConfig) (*snagdImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping snagd services using config: %#v\n", config)
	snagd := &snagdImpl{
		eventBus: event.New(),
		config:   config,
	}

	overrides, err := download.LoadOverrideTable(config.OverridesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load format override table: %w", err)
	}
	snagd.overrides = overrides

	store, err := storage.New(config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to construct storage backend: %w", err)
	}

	if err := os.MkdirAll(config.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir %s: %w", config.DownloadDir, err)
	}

	snagd.pipeline = download.NewPipeline(
		download.NewResolver(overrides),
		ytdlp.New(config.YtdlpPath),
		ffmpeg.NewProber(config.Ffmpeg),
		ffmpeg.NewRemuxer(config.Ffmpeg),
		ffmpeg.NewTranscoder(config.Ffmpeg),
		store,
		download.NewHTTPFetcher(),
		config.DownloadDir,
	)

	cache := job.NewResultCache(config.RedisAddr, config.RedisPassword, time.Duration(config.CacheTTLMinutes)*time.Minute)

	if config.EnableDatabase {
		snagd.db = database.New()
		snagd.historian = newHistorian(snagd.db, history.NewStore())
	}

	snagd.jobService = job.New(config.Jobs, snagd.pipeline, snagd.eventBus, cache, snagd.historian.orNil())
	snagd.restGateway = api.NewRestGateway(&config.Rest, snagd.jobService, snagd.historian.recordServiceOrNil())
	snagd.activityService = newActivityService(snagd.restGateway, snagd.eventBus)

	return snagd, nil
}

// Run will start snagd by bringing up all required services and
// connections. This function will not return until snagd is stopped;
// to stop it, cancel the provided context. Errors from which snagd
// cannot recover will also cause it to stop.
func (snagd *snagdImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	// Abandoned working directories from a previous run are garbage.
	download.SweepOrphans(snagd.config.DownloadDir)

	if snagd.db != nil {
		log.Emit(logger.NEW, "Connecting to database...\n")
		if err := snagd.db.Connect(snagd.config.Database); err != nil {
			return err
		}
	}

	if snagd.config.OverridesPath != "" {
		go snagd.overrides.Watch(ctx)
	}

	wg := &sync.WaitGroup{}
	snagd.spawnAsyncService(ctx, wg, snagd.jobService, "job-service", crashHandler)
	snagd.spawnAsyncService(ctx, wg, snagd.activityService, "activity-service", crashHandler)
	snagd.spawnAsyncService(ctx, wg, snagd.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "snagd services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as its own
// go-routine, ensuring that the service waitgroup is updated correctly
func (snagd *snagdImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
