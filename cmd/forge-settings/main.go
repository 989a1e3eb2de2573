package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/forge-settings/internal/application"
	"github.com/eugenenazirov/forge-settings/internal/config"
	"github.com/eugenenazirov/forge-settings/internal/logging"
	"github.com/eugenenazirov/forge-settings/internal/settings"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("forge-settings", "Site settings resolver - selects settings, logging profile and service files per environment")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	appRoot := kingpinApp.Flag("app-root", "Application root directory").String()
	sitePath := kingpinApp.Flag("site-path", "Site directory relative to the application root").String()
	overrideFile := kingpinApp.Flag("override-file", "Name of the local override file inside the site directory").String()

	resolveCmd := kingpinApp.Command("resolve", "Print the effective settings for the current environment").Default()
	format := resolveCmd.Flag("format", "Output format").Enum(config.FormatYAML, config.FormatJSON)

	serveCmd := kingpinApp.Command("serve", "Serve resolved settings over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:   *configFile,
		AppRoot:      appRoot,
		SitePath:     sitePath,
		OverrideFile: overrideFile,
		Format:       format,
		Port:         port,
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	signals := settings.ReadSignals(os.LookupEnv)

	// The logger follows the environment profile; the override file cannot change it.
	logger, err := logging.ForProfile(settings.ProfileFor(signals))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	switch command {
	case resolveCmd.FullCommand():
		if err := runResolve(os.Stdout, app, signals, cfg.Format); err != nil {
			logger.Fatal("failed to resolve settings", zap.Error(err))
		}
	case serveCmd.FullCommand():
		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

type resolver interface {
	Resolve(signals settings.Signals) (settings.Resolution, error)
}

func runResolve(w io.Writer, r resolver, signals settings.Signals, format string) error {
	res, err := r.Resolve(signals)
	if err != nil {
		return err
	}

	doc := res.Document()
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
