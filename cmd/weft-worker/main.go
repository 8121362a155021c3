package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/weftwork/weft/pkg/cmd"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/log"
	"github.com/weftwork/weft/pkg/otelhelper"
	"github.com/weftwork/weft/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "weft-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker to claim and execute workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "encryption-key",
				Usage:    "Key used to decrypt stored credentials",
				Required: true,
				Sources:  cli.EnvVars("WEFT_ENCRYPTION_KEY"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often to poll for claimable runs",
				Value:   workflow.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "lease-duration",
				Usage:   "How long a claim holds before another worker may take over",
				Value:   workflow.DefaultLeaseDuration,
				Sources: cli.EnvVars("LEASE_DURATION"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP",
				Sources: cli.EnvVars("WEFT_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("weft-worker")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command.Bool("tracing") {
		if _, err := otelhelper.NewTracer(ctx, "weft-worker"); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "Initializing Weft Worker")

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := persistence.Close(closeCtx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	resolver := credentials.NewResolver(persistence, command.String("encryption-key"))
	registry := cmd.NewRegistry(logger, resolver)
	executor := workflow.NewExecutor(persistence, registry, logger)

	poller := workflow.NewPoller(persistence, executor, workflow.PollerConfig{
		WorkerID:      command.String("worker-id"),
		PollInterval:  command.Duration("poll-interval"),
		LeaseDuration: command.Duration("lease-duration"),
	}, logger)

	if err := poller.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Worker stopped with error", "error", err)

		return err
	}

	logger.Info("Worker shut down")

	return nil
}
