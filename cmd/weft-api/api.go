// Package main provides the Weft API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/weftwork/weft/pkg/cmd"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/persistence"
	"github.com/weftwork/weft/pkg/services"
	"github.com/weftwork/weft/pkg/web"
)

type API struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	encryptionKey string
	validate      *validator.Validate
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence, encryptionKey string) *API {
	return &API{
		logger:        logger,
		persistence:   persistence,
		encryptionKey: encryptionKey,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	resolver := credentials.NewResolver(a.persistence, a.encryptionKey)
	registry := cmd.NewRegistry(a.logger, resolver)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.persistence, registry),
		services.NewExecution(a.persistence),
		services.NewCredential(a.persistence, a.encryptionKey),
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
		return c.SendString("Weft API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
