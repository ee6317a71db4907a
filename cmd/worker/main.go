package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/config"
	"github.com/orchardhq/orchard/internal/db"
	"github.com/orchardhq/orchard/internal/logging"
	"github.com/orchardhq/orchard/internal/metrics"
	"github.com/orchardhq/orchard/internal/runtime"
	"github.com/orchardhq/orchard/internal/workflow"
)

const taskQueue = "orchard-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	policy, err := config.LoadBackupPolicy(cfg.BackupPolicyFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load backup policy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	dockerRuntime, err := runtime.NewDockerRuntime(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to container engine")
	}
	defer dockerRuntime.Close()

	// Instance containers reach the shared Postgres server with plain
	// host/user/password settings, so split the connection URL up front.
	appDBConfig, err := pgx.ParseConfig(cfg.AppDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse app database URL")
	}

	w := worker.New(tc, taskQueue, worker.Options{})

	// Register activities
	w.RegisterActivity(activity.NewCoreDB(corePool))
	w.RegisterActivity(activity.NewRuntime(dockerRuntime, activity.RuntimeConfig{
		Image:            cfg.InstanceImage,
		Network:          cfg.DockerNetwork,
		DatabaseHost:     appDBConfig.Host,
		DatabaseUser:     appDBConfig.User,
		DatabasePassword: appDBConfig.Password,
	}, logger))
	w.RegisterActivity(activity.NewBackup(cfg.AppDatabaseURL, cfg.BackupPath, cfg.DataPath, logger))
	w.RegisterActivity(activity.NewStorage(cfg, logger))

	// Register workflows
	w.RegisterWorkflow(workflow.InstanceLifecycleWorkflow)
	w.RegisterWorkflow(workflow.CreateInstanceWorkflow)
	w.RegisterWorkflow(workflow.StartInstanceWorkflow)
	w.RegisterWorkflow(workflow.StopInstanceWorkflow)
	w.RegisterWorkflow(workflow.RestartInstanceWorkflow)
	w.RegisterWorkflow(workflow.DeleteInstanceWorkflow)
	w.RegisterWorkflow(workflow.ReconcileInstanceWorkflow)
	w.RegisterWorkflow(workflow.ReconcileInstancesWorkflow)
	w.RegisterWorkflow(workflow.CreateBackupWorkflow)
	w.RegisterWorkflow(workflow.RestoreBackupWorkflow)
	w.RegisterWorkflow(workflow.DeleteBackupWorkflow)
	w.RegisterWorkflow(workflow.CleanupBackupsWorkflow)
	w.RegisterWorkflow(workflow.ScheduledBackupWorkflow)

	if cfg.MetricsListenAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsListenAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, taskQueue, policy, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, taskQueue string, policy config.BackupPolicy, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "instance-reconcile-cron",
			cron:     "*/5 * * * *",
			workflow: workflow.ReconcileInstancesWorkflow,
		},
		{
			id:       "scheduled-backup-cron",
			cron:     policy.Schedule,
			workflow: workflow.ScheduledBackupWorkflow,
			args: []interface{}{workflow.ScheduledBackupParams{
				Type:          policy.Type,
				RetentionDays: policy.RetentionDays,
			}},
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: taskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
