package routes

import (
	"mercagasto/domain"
	"mercagasto/internal/api/handlers"
	"mercagasto/internal/middleware"
	"mercagasto/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App               *fiber.App
	ProcessingHandler handlers.ProcessingHandler
	MatchingHandler   handlers.MatchingHandler
	ReportHandler     handlers.ReportHandler
	CatalogHandler    handlers.CatalogHandler
	Middleware        middleware.Middleware
	JWTService        jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.Processing()
	c.Matching()
	c.Reports()
	c.Catalog()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": domain.MessageSuccessPing})
	})
}

func (c *Config) Processing() {
	processing := c.App.Group("/api/v1/processing", c.Middleware.AuthMiddleware(c.JWTService))
	processing.Get("", c.ProcessingHandler.ListLogs)
	processing.Post("/retry", c.ProcessingHandler.RetryBatch)
}

func (c *Config) Matching() {
	matching := c.App.Group("/api/v1/matching", c.Middleware.AuthMiddleware(c.JWTService))
	matching.Get("/stats", c.MatchingHandler.GetStats)
	matching.Post("/rematch", c.MatchingHandler.Rematch)
}

func (c *Config) Reports() {
	reports := c.App.Group("/api/v1/reports", c.Middleware.AuthMiddleware(c.JWTService))
	reports.Get("/categories", c.ReportHandler.GetCategoryTotals)
	reports.Post("/send", c.ReportHandler.SendReport)
}

func (c *Config) Catalog() {
	catalog := c.App.Group("/api/v1/catalog", c.Middleware.AuthMiddleware(c.JWTService))
	catalog.Get("/categories", c.CatalogHandler.ListCategories)
}
