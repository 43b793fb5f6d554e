// Package main runs the overdue sweep that announces missed stage deadlines.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hirepath/hirepath/pkg/cmd"
	"github.com/hirepath/hirepath/pkg/log"
	"github.com/hirepath/hirepath/pkg/sweeper"
	"github.com/jonboulle/clockwork"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "hirepath-sweeper"

func main() {
	logger := log.WithModule("sweeper")

	cmd := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Publish events for applications past their stage deadline",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron schedule of the overdue sweep",
				Value:   sweeper.DefaultSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single sweep and exit",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Hirepath sweeper")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			s, err := sweeper.NewSweeper(persistence, eventBus, clockwork.NewRealClock(), logger, command.String("sweep-schedule"))
			if err != nil {
				return err
			}

			if command.Bool("once") {
				_, err := s.Sweep(ctx)

				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = s.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("Shutting down gracefully...")

			return s.Stop(context.WithoutCancel(ctx))
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
