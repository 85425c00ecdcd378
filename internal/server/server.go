// Package server exposes the loan portal over HTTP.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/ratelimit"
	"cashflow-loans/internal/fallback"
	"cashflow-loans/internal/portal"
	"cashflow-loans/internal/quote"
	"cashflow-loans/pkg/registry"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Registry *registry.ProductRegistry
	Quotes   *quote.Engine
	Forms    portal.FormDeps
	Store    fallback.Store
	Limiter  *ratelimit.Limiter
	Logger   logger.Logger
}

type Server struct {
	app    *fiber.App
	cfg    config.ServerConfig
	info   config.AppConfig
	deps   Deps
	logger logger.Logger
}

func New(cfg config.ServerConfig, info config.AppConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Quotes == nil {
		deps.Quotes = quote.NewEngine()
	}
	if deps.Forms.Quotes == nil {
		deps.Forms.Quotes = deps.Quotes
	}

	s := &Server{cfg: cfg, info: info, deps: deps, logger: deps.Logger}

	bodyLimit := cfg.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 20
	}
	s.app = fiber.New(fiber.Config{
		AppName:               info.Name,
		BodyLimit:             bodyLimit * 1024 * 1024,
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Millisecond,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})

	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.app.Use(requestid.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: joinOrigins(cfg.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	s.app.Use(otelfiber.Middleware(
		otelfiber.WithTracerProvider(otel.GetTracerProvider()),
		otelfiber.WithPropagators(otel.GetTextMapPropagator()),
		otelfiber.WithSpanNameFormatter(func(c *fiber.Ctx) string {
			return info.Name + " " + c.Method() + " " + c.Route().Path
		}),
		otelfiber.WithNext(func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		}),
	))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/ready", s.ready)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	api.Get("/products", s.products)
	api.Get("/shell", s.shell)
	api.Get("/quote", s.quote)

	submit := []fiber.Handler{}
	if s.deps.Limiter != nil {
		submit = append(submit, s.deps.Limiter.Middleware())
	}
	submit = append(submit, s.submitApplication)
	api.Post("/applications", submit...)

	s.app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Resource not found",
			"path":    c.Path(),
		})
	})
}

// App returns the underlying fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks until the server stops.
func (s *Server) Listen() error {
	addr := s.cfg.Address
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info("HTTP server listening", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError renders StandardErrors and fiber errors as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: true, Code: "HTTP_ERROR", Message: fe.Message})
	}

	stdErr := errors.Normalize(err)
	status := errors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"path":       c.Path(),
		"method":     c.Method(),
		"statusCode": status,
		"code":       string(stdErr.Code),
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed", fields)
	} else {
		s.logger.Debug("Request rejected", fields)
	}

	return c.Status(status).JSON(errorBody{
		Error:   true,
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Fields:  stdErr.FieldErrors(),
	})
}

type errorBody struct {
	Error   bool              `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ", ")
}
