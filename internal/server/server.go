// Package server exposes the inbound webhook, health and metrics endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mr-karan/mattermost-bridge/internal/config"
	"github.com/mr-karan/mattermost-bridge/internal/dispatch"
)

// Dispatcher forwards one authenticated payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte) dispatch.Outcome
}

// ServerOptions holds the server's dependencies.
type ServerOptions struct {
	Config     *config.Config
	Dispatcher Dispatcher
	Logger     *slog.Logger
	Version    string
}

// Server wraps the fiber application.
type Server struct {
	app        *fiber.App
	config     *config.Config
	dispatcher Dispatcher
	log        *slog.Logger
	version    string
}

// New builds the fiber app and registers all routes.
func New(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:     opts.Config,
		dispatcher: opts.Dispatcher,
		log:        logger.With("component", "http_server"),
		version:    opts.Version,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               opts.Config.App.Name,
		ReadTimeout:           opts.Config.Server.ReadTimeout,
		WriteTimeout:          opts.Config.Server.WriteTimeout,
		BodyLimit:             opts.Config.Server.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.setupRoutes()

	if opts.Config.Auth.Token == "" {
		s.log.Warn("auth.token is not set; every webhook request will be rejected")
	}
	return s
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	if s.config.Server.Metrics {
		s.app.Get("/metrics", s.handleMetrics)
	}
	s.app.Post("/webhook", s.requireAuthToken, s.handleWebhook)
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info("listening", "address", s.config.Server.Address, "version", s.version)
	return s.app.Listen(s.config.Server.Address)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestLogger logs the path only; the query string carries the auth token.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return err
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return SendError(c, code, err.Error())
}
