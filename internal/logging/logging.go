package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/forge-settings/internal/settings"
)

// New creates a production-ready structured logger configured for JSON output.
func New() (*zap.Logger, error) {
	return build(baseConfig())
}

// ForProfile creates a logger matching a resolved logging profile. Production
// hides stack traces and anything below warn; development logs at debug with
// stack traces from warn upwards.
func ForProfile(profile settings.Profile) (*zap.Logger, error) {
	return build(ConfigForProfile(profile))
}

// ConfigForProfile returns the zap configuration used by ForProfile.
func ConfigForProfile(profile settings.Profile) zap.Config {
	cfg := baseConfig()
	if profile.ErrorDisplay() {
		cfg.Development = true
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Sampling = nil
		return cfg
	}

	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	return cfg
}

func baseConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false
	return cfg
}

func build(cfg zap.Config) (*zap.Logger, error) {
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
