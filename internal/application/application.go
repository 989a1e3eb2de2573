package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/forge-settings/internal/api"
	"github.com/eugenenazirov/forge-settings/internal/config"
	"github.com/eugenenazirov/forge-settings/internal/settings"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	resolver *settings.Resolver
	loader   *settings.Loader
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	paths := cfg.Paths()
	appRoot, err := resolveAppRoot(paths.AppRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to locate application root: %w", err)
	}
	paths.AppRoot = appRoot

	resolver := settings.NewResolver(paths, settings.WithLogger(logger))
	loader := settings.NewLoader(resolver, settings.ReadOverlay, logger)
	handler := api.NewHandler(loader, api.WithHandlerLogger(logger))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		resolver: resolver,
		loader:   loader,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, apiRouter),
	}, nil
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

// Resolve loads the effective settings for signals, override file included.
func (a *App) Resolve(signals settings.Signals) (settings.Resolution, error) {
	return a.loader.Load(signals)
}

// Paths returns the site paths after the application root was located.
func (a *App) Paths() settings.Paths {
	return a.resolver.Paths()
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.String("app_root", a.Paths().AppRoot),
			zap.String("site_path", a.Paths().SitePath),
		)
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

// resolveAppRoot returns absolute roots unchanged. Relative roots are looked
// up from the working directory upwards so the tool works from any
// subdirectory of a project.
func resolveAppRoot(root string) (string, error) {
	if filepath.IsAbs(root) {
		return filepath.Clean(root), nil
	}
	return resolveProjectPath(root)
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
