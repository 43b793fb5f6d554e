// Package main provides the Hirepath API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/hirepath/hirepath/pkg/eventbus"
	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/otelhelper"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/hirepath/hirepath/pkg/services"
	"github.com/hirepath/hirepath/pkg/web"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	locker      locking.Locker
	eventBus    eventbus.EventBus
	clock       clockwork.Clock
	weights     services.PriorityWeights
	metrics     *otelhelper.Metrics
	tracer      trace.Tracer
	validate    *validator.Validate
}

// APIOption customizes optional API collaborators.
type APIOption func(*API)

func WithMetrics(metrics *otelhelper.Metrics) APIOption {
	return func(a *API) { a.metrics = metrics }
}

func WithTracer(tracer trace.Tracer) APIOption {
	return func(a *API) { a.tracer = tracer }
}

func WithClock(clock clockwork.Clock) APIOption {
	return func(a *API) { a.clock = clock }
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	locker locking.Locker,
	eventBus eventbus.EventBus,
	weights services.PriorityWeights,
	opts ...APIOption,
) *API {
	api := &API{
		persistence: persistence,
		logger:      logger,
		locker:      locker,
		eventBus:    eventBus,
		clock:       clockwork.NewRealClock(),
		weights:     weights,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, opt := range opts {
		opt(api)
	}

	return api
}

func (a *API) App() *fiber.App {
	progressionOpts := []services.ProgressionOption{services.WithMetrics(a.metrics)}
	if a.eventBus != nil {
		progressionOpts = append(progressionOpts, services.WithPublisher(a.eventBus))
	}

	if a.tracer != nil {
		progressionOpts = append(progressionOpts, services.WithTracer(a.tracer))
	}

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.persistence, a.locker, a.clock, a.logger),
		services.NewStage(a.persistence, a.locker, a.clock, a.logger),
		services.NewStageReorderer(a.persistence, a.locker, a.clock, a.logger),
		services.NewProgression(a.persistence, a.locker, a.clock, a.logger, progressionOpts...),
		services.NewWorklistBuilder(a.persistence, services.NewPriorityCalculator(a.weights), a.clock, a.logger),
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Hirepath API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
