package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/tessellary/casework-api/internal/config"
	"github.com/tessellary/casework-api/internal/dispatch"
	"github.com/tessellary/casework-api/internal/identity"
	"github.com/tessellary/casework-api/internal/inference"
	"github.com/tessellary/casework-api/internal/platform/postgres"
	"github.com/tessellary/casework-api/internal/platform/redis"
	"github.com/tessellary/casework-api/internal/push"
	"github.com/tessellary/casework-api/internal/service"
	"github.com/tessellary/casework-api/internal/task"
)

// application holds the composed dependency graph for the server. All
// shared resources (connections, the submission semaphore, the work
// queue) are created once here and injected downward.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	sourceDB    *sql.DB
	redisClient *goredis.Client

	taskQueue  *task.TaskQueue
	workerPool *task.WorkerPool

	analysisService service.AnalysisService
	resultService   service.ResultService
}

// newApplication wires the full dependency graph from configuration.
// The worker pool is started before newApplication returns.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg.Database.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("application database: %w", err)
	}

	// The transcript source may live in a separate records database.
	sourceDB := db
	if cfg.Source.URL != "" && cfg.Source.URL != cfg.Database.URL {
		sourceDB, err = setupAppDatabase(cfg.Source.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("source database: %w", err)
		}
	}

	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	redisClient := goredis.NewClient(redisOpts)

	requestStore := postgres.NewPostgresRequestStore(db, logger)
	taskStore := postgres.NewPostgresTaskRecordStore(db, logger)
	pushStore := postgres.NewPostgresPushStore(db, logger)
	callerStore := postgres.NewPostgresCallerStore(db, logger)
	transcriptSource := postgres.NewPostgresTranscriptSource(sourceDB, logger)

	expectedSource, err := service.NewStoreExpectedSource(requestStore)
	if err != nil {
		return nil, err
	}

	counterGate, err := redis.NewCounterGate(
		redisClient,
		expectedSource,
		time.Duration(cfg.Redis.CounterTTLHours)*time.Hour,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("completion gate: %w", err)
	}

	inferenceClient, err := inference.NewHTTPClient(
		cfg.Inference.URL,
		time.Duration(cfg.Inference.TimeoutSeconds)*time.Second,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("inference client: %w", err)
	}

	// One semaphore for the whole process: every dispatch shares the
	// same in-flight submission budget.
	submissionSem := semaphore.NewWeighted(int64(cfg.Inference.MaxInFlight))

	dispatcher, err := dispatch.NewDispatcher(
		taskStore,
		inferenceClient,
		identity.NewResidentIDParser(),
		submissionSem,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	destinations := make(map[string]push.Destination, len(cfg.Push.Destinations))
	for affiliation, dest := range cfg.Push.Destinations {
		destinations[affiliation] = push.Destination{
			URL:    dest.URL,
			AppID:  dest.AppID,
			Secret: dest.Secret,
		}
	}

	pusher, err := push.NewPusher(
		callerStore,
		requestStore,
		pushStore,
		destinations,
		time.Duration(cfg.Push.TimeoutSeconds)*time.Second,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("pusher: %w", err)
	}

	taskQueue := task.NewTaskQueue(cfg.Task.QueueSize, logger)
	workerPool := task.NewWorkerPool(
		taskQueue,
		task.WorkerPoolConfig{WorkerCount: cfg.Task.WorkerCount},
		logger,
	)

	analysisService, err := service.NewAnalysisService(
		requestStore, transcriptSource, taskQueue, dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("analysis service: %w", err)
	}

	resultService, err := service.NewResultService(
		taskStore, requestStore, counterGate, pusher, taskQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("result service: %w", err)
	}

	workerPool.Start()

	return &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		sourceDB:        sourceDB,
		redisClient:     redisClient,
		taskQueue:       taskQueue,
		workerPool:      workerPool,
		analysisService: analysisService,
		resultService:   resultService,
	}, nil
}

// cleanup releases application resources in dependency order: stop
// accepting work, drain the workers, then close the connections.
func (app *application) cleanup() {
	app.taskQueue.Close()
	app.workerPool.Wait()
	app.workerPool.Stop()

	if err := app.redisClient.Close(); err != nil {
		app.logger.Error("failed to close redis client", "error", err)
	}
	if app.sourceDB != app.db {
		if err := app.sourceDB.Close(); err != nil {
			app.logger.Error("failed to close source database", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
