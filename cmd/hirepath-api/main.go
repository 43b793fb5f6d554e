package main

import (
	"context"
	"os"

	"github.com/hirepath/hirepath/pkg/cmd"
	"github.com/hirepath/hirepath/pkg/log"
	"github.com/hirepath/hirepath/pkg/otelhelper"
	"github.com/hirepath/hirepath/pkg/services"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
)

const (
	defaultPort = 9091
	serviceName = "hirepath-api"
)

func main() {
	logger := log.WithModule("api")
	weights := services.DefaultPriorityWeights()

	cmd := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Manage recruitment workflows and candidate progression",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared write lock (in-process lock when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.FloatFlag{
				Name:    "urgency-weight",
				Usage:   "Priority points per hour of deadline urgency",
				Value:   weights.UrgencyPerHour,
				Sources: cli.EnvVars("PRIORITY_URGENCY_WEIGHT"),
			},
			&cli.FloatFlag{
				Name:    "age-weight",
				Usage:   "Priority points per hour spent in a stage without deadline",
				Value:   weights.AgePerHour,
				Sources: cli.EnvVars("PRIORITY_AGE_WEIGHT"),
			},
			&cli.FloatFlag{
				Name:    "priority-horizon",
				Usage:   "Hours after which age and remaining time stop changing priority",
				Value:   weights.HorizonHours,
				Sources: cli.EnvVars("PRIORITY_HORIZON_HOURS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Hirepath API")

			var opts []APIOption

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, serviceName)
				if err != nil {
					return err
				}

				opts = append(opts, WithTracer(tracer))
			}

			metrics, err := otelhelper.NewMetrics(otel.GetMeterProvider())
			if err != nil {
				return err
			}

			opts = append(opts, WithMetrics(metrics))

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

			locker, closeLocker := cmd.NewLocker(command.String("redis-url"), logger)
			defer func() {
				if err := closeLocker(); err != nil {
					logger.ErrorContext(ctx, "Failed to close locker", "error", err)
				}
			}()

			priorityWeights := services.PriorityWeights{
				UrgencyPerHour: command.Float("urgency-weight"),
				AgePerHour:     command.Float("age-weight"),
				HorizonHours:   command.Float("priority-horizon"),
			}
			if err := priorityWeights.Validate(); err != nil {
				logger.WarnContext(ctx, "Invalid priority weights, using defaults", "error", err)
			}

			api := NewAPI(logger, persistence, locker, eventBus, priorityWeights, opts...)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
