package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/slot-scheduler/internal/config"
	"github.com/clinicdesk/slot-scheduler/internal/db"
	redisclient "github.com/clinicdesk/slot-scheduler/internal/redis"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

// The worker runs the two background halves of the scheduler: the periodic
// doctor in/out status sweep and the queued arrived-patient reassignment
// passes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg.Env).With().Str("service", "worker").Logger()

	clinicID, err := uuid.Parse(os.Getenv("CLINIC_ID"))
	if err != nil {
		logger.Fatal().Msg("CLINIC_ID is required and must be a valid UUID")
	}

	logger.Info().
		Str("env", cfg.Env).
		Str("clinic_id", clinicID.String()).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)
	svc := schedule.NewService(repo, locker, cfg, schedule.SystemClock(), logger)

	// Reassignment task consumer.
	taskServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		},
		asynq.Config{Concurrency: 5},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(schedule.TaskReassignArrived, svc.HandleReassignTask)

	go func() {
		if err := taskServer.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("task server error")
		}
	}()

	// Status sweep: run once at startup, then on the ticker. The sweeping
	// flag keeps overlapping runs single-flight.
	var sweeping atomic.Bool
	runSweep(rootCtx, svc, clinicID, &sweeping, logger)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping worker")
			taskServer.Shutdown()
			return
		case <-ticker.C:
			runSweep(rootCtx, svc, clinicID, &sweeping, logger)
		}
	}
}

func runSweep(ctx context.Context, svc *schedule.Service, clinicID uuid.UUID, sweeping *atomic.Bool, logger zerolog.Logger) {
	if !sweeping.CompareAndSwap(false, true) {
		logger.Warn().Msg("previous status sweep still running, skipping")
		return
	}
	defer sweeping.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	changed, err := svc.UpdateDoctorStatuses(runCtx, clinicID)
	if err != nil {
		logger.Error().Err(err).Msg("status sweep error")
		return
	}
	logger.Info().
		Int("changed", changed).
		Dur("took", time.Since(start)).
		Msg("status sweep complete")
}

func newLogger(env string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}
