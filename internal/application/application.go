package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/settingstree/internal/api"
	"github.com/eugenenazirov/settingstree/internal/config"
	"github.com/eugenenazirov/settingstree/internal/registry"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	registry *registry.Registry
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	reg, err := LoadRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(reg)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		registry: reg,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// LoadRegistry creates a registry with the configured environment and
// registers every configured source in order.
func LoadRegistry(cfg config.Config, logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithEnvironment(cfg.Environment),
	)

	for _, src := range cfg.Sources {
		if _, err := reg.RegisterFile(src.Group, src.File); err != nil {
			return nil, fmt.Errorf("register %s: %w", src, err)
		}
	}

	logger.Info("settings loaded",
		zap.Strings("groups", reg.Groups()),
		zap.String("environment", reg.Environment()),
	)
	return reg, nil
}

// BuildRootHandler mounts the API under /api/ and answers 404 elsewhere.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Registry returns the settings registry served by the application.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
