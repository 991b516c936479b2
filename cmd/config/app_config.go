package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"mercagasto/internal/api/handlers"
	"mercagasto/internal/api/routes"
	"mercagasto/internal/middleware"
	"mercagasto/internal/utils"
	"mercagasto/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the operator API. Access logs go to logOutput, or to
// ./logs/app.log when it is nil.
func NewApp(services *Services, jwtService jwt.JWTService, logOutput io.Writer) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		AppName: "mercagasto",
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	if logOutput == nil {
		if err := os.MkdirAll("./logs", os.ModePerm); err != nil {
			return nil, fmt.Errorf("error creating logs directory: %w", err)
		}
		file, err := os.OpenFile(
			"./logs/app.log",
			os.O_RDWR|os.O_CREATE|os.O_APPEND,
			0666,
		)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		logOutput = file
	}
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Europe/Madrid",
		Output:     logOutput,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Second,
	}))

	// Handler
	processingHandler := handlers.NewProcessingHandler(services.Processing, services.Source, validator)
	matchingHandler := handlers.NewMatchingHandler(services.Receipts)
	reportHandler := handlers.NewReportHandler(services.Receipts, services.Reports, validator)
	catalogHandler := handlers.NewCatalogHandler(services.Catalog)

	// routes
	routesConfig := routes.Config{
		App:               app,
		ProcessingHandler: processingHandler,
		MatchingHandler:   matchingHandler,
		ReportHandler:     reportHandler,
		CatalogHandler:    catalogHandler,
		Middleware:        middlewares,
		JWTService:        jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
