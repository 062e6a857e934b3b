package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/mattermost-bridge/internal/config"
	"github.com/mr-karan/mattermost-bridge/internal/dispatch"
	"github.com/mr-karan/mattermost-bridge/internal/mattermost"
	"github.com/mr-karan/mattermost-bridge/internal/payload"
	"github.com/mr-karan/mattermost-bridge/internal/render"
	"github.com/mr-karan/mattermost-bridge/internal/routing"
	"github.com/mr-karan/mattermost-bridge/internal/server"
	"github.com/mr-karan/mattermost-bridge/pkg/logger"
	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// App represents the core application context, holding dependencies and configuration.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *routing.Registry
	Renderer   *render.Renderer
	Mattermost *mattermost.Client
	Dispatcher *dispatch.Dispatcher
	Version    string
	server     *server.Server
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	Version    string
	// Debug forces the debug log level regardless of app.log_level.
	Debug bool
}

// New loads configuration and builds the logger. Components are wired by Initialize.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig is New for an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.App.LogLevel
	if opts.Debug {
		level = "debug"
	}
	return &App{
		Config:  cfg,
		Logger:  logger.New(level, cfg.App.LogFormat),
		Version: opts.Version,
	}, nil
}

// Initialize builds the routing registry, renderer, Mattermost client,
// dispatcher and HTTP server.
func (a *App) Initialize() error {
	routes := make([]routing.Route, 0, len(a.Config.Routes))
	for _, r := range a.Config.RouteTable() {
		routes = append(routes, routing.Route{
			Key: models.RoutingKey{Application: r.Application, Environment: r.Environment},
			Destination: models.Destination{
				Webhook:  r.Webhook,
				Channel:  r.Channel,
				Username: r.Username,
			},
		})
	}

	fallback := models.RoutingKey{
		Application: a.Config.Fallback.Application,
		Environment: a.Config.Fallback.Environment,
	}
	registry, err := routing.New(routes, fallback)
	if err != nil {
		return fmt.Errorf("failed to build routing table: %w", err)
	}
	a.Registry = registry
	a.Logger.Info("routing table loaded", "routes", len(routes), "fallback", fallback.String())

	a.Renderer = render.New(a.Logger)
	a.Mattermost = mattermost.NewClient(mattermost.ClientOptions{
		BaseURL:       a.Config.Mattermost.BaseURL,
		Timeout:       a.Config.Mattermost.Timeout,
		SkipTLSVerify: a.Config.Mattermost.TLSInsecureSkipVerify,
		Logger:        a.Logger,
	})
	a.Dispatcher = dispatch.New(dispatch.Options{
		Resolver: a.Registry,
		Renderer: a.Renderer,
		Sender:   a.Mattermost,
		Logger:   a.Logger,
		IconURL:  a.Config.Mattermost.IconURL,
	})

	a.server = server.New(server.ServerOptions{
		Config:     a.Config,
		Dispatcher: a.Dispatcher,
		Logger:     a.Logger,
		Version:    a.Version,
	})
	return nil
}

// Start begins serving HTTP and blocks until the server stops.
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	a.Logger.Info("starting server")
	return a.server.Start()
}

// Shutdown stops accepting requests and waits for in-flight dispatches.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.Logger.Error("error shutting down server", "error", err)
			return err
		}
		a.Logger.Info("HTTP server shut down successfully")
	}

	a.Logger.Info("application shutdown complete")
	return nil
}

// Preview is the result of running a payload through the pipeline without delivery.
type Preview struct {
	Origin      models.Origin
	Key         models.RoutingKey
	Destination models.Destination
	Fallback    bool
	Text        string
}

// Preview classifies, routes and renders raw exactly as a webhook request
// would, but does not contact Mattermost. Initialize must have been called.
func (a *App) Preview(raw []byte) (Preview, error) {
	var p Preview

	origin, err := payload.Classify(raw)
	if err != nil {
		return p, err
	}
	p.Origin = origin

	alert, err := payload.Extract(origin, raw)
	if err != nil {
		return p, err
	}
	p.Key = alert.RoutingKey()

	dest, found := a.Registry.Resolve(p.Key)
	p.Destination = dest
	p.Fallback = !found
	p.Text = a.Renderer.Render(alert, raw)
	return p, nil
}
