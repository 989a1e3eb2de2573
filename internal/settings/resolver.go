package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// EnvAppEnv and EnvForgeEnv name the environment signals read by ReadSignals.
	EnvAppEnv   = "APP_ENV"
	EnvForgeEnv = "FORGE_ENV"

	productionEnv = "production"

	// DefaultOverrideFile is the override file name looked up inside the site directory.
	DefaultOverrideFile = "settings.local.yml"

	// LoggingConfigObject is the configuration object carrying error_level.
	LoggingConfigObject = "system.logging"
)

// Signals holds the environment values that decide the logging profile.
// An absent variable is represented by the empty string.
type Signals struct {
	AppEnv   string `json:"appEnv"`
	ForgeEnv string `json:"forgeEnv"`
}

// IsProduction reports whether either signal is exactly "production".
func (s Signals) IsProduction() bool {
	return s.AppEnv == productionEnv || s.ForgeEnv == productionEnv
}

// ProfileFor selects the logging profile for signals.
func ProfileFor(signals Signals) Profile {
	if signals.IsProduction() {
		return ProfileProduction
	}
	return ProfileDevelopment
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ReadSignals reads APP_ENV and FORGE_ENV through lookup. Values are not trimmed.
func ReadSignals(lookup LookupFunc) Signals {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	appEnv, _ := lookup(EnvAppEnv)
	forgeEnv, _ := lookup(EnvForgeEnv)
	return Signals{AppEnv: appEnv, ForgeEnv: forgeEnv}
}

// Prober checks whether a file exists without opening it.
type Prober interface {
	Exists(path string) (bool, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(path string) (bool, error)

// Exists calls f(path).
func (f ProberFunc) Exists(path string) (bool, error) {
	return f(path)
}

// StatProber probes with os.Stat. Absence is reported as false; every other
// failure is returned to the caller.
type StatProber struct{}

// Exists implements Prober.
func (StatProber) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Paths locates the site inside the application root.
type Paths struct {
	AppRoot      string
	SitePath     string
	OverrideFile string
}

func (p Paths) sitePath(name string) string {
	return filepath.Join(p.AppRoot, p.SitePath, name)
}

// ServicesFile is the primary services descriptor.
func (p Paths) ServicesFile() string {
	return p.sitePath("services.yml")
}

// LocalServicesFile is the site's local services descriptor.
func (p Paths) LocalServicesFile() string {
	return p.sitePath("services.local.yml")
}

// DevelopmentServicesFile is appended to the sources outside production.
func (p Paths) DevelopmentServicesFile() string {
	return filepath.Join(p.AppRoot, "sites", "development.services.yml")
}

// OverridePath is the file probed for local overrides.
func (p Paths) OverridePath() string {
	name := p.OverrideFile
	if name == "" {
		name = DefaultOverrideFile
	}
	return p.sitePath(name)
}

// Resolver computes a Resolution from environment signals.
type Resolver struct {
	paths  Paths
	prober Prober
	logger *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithProber replaces the os.Stat based prober.
func WithProber(p Prober) ResolverOption {
	return func(r *Resolver) {
		r.prober = p
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver for the given site paths.
func NewResolver(paths Paths, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		paths:  paths,
		prober: StatProber{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Paths returns the site paths the resolver was built with.
func (r *Resolver) Paths() Paths {
	return r.paths
}

// Resolve builds the settings for signals. The override file is probed
// exactly once; a probe failure other than absence returns ErrProbe.
func (r *Resolver) Resolve(signals Signals) (Resolution, error) {
	res := Resolution{
		Settings: defaultSettings(),
		Config:   map[string]Settings{},
		Sources:  []string{r.paths.ServicesFile(), r.paths.LocalServicesFile()},
	}

	res.Profile = ProfileFor(signals)
	if res.Profile == ProfileDevelopment {
		res.Sources = append(res.Sources, r.paths.DevelopmentServicesFile())
	}
	res.Config[LoggingConfigObject] = Settings{"error_level": string(res.Profile.Verbosity())}

	overridePath := r.paths.OverridePath()
	exists, err := r.prober.Exists(overridePath)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %s: %w", ErrProbe, overridePath, err)
	}
	if exists {
		res.Override = &OverrideDirective{Path: overridePath}
	}

	r.logger.Debug("settings resolved",
		zap.Stringer("profile", res.Profile),
		zap.Strings("sources", res.Sources),
		zap.Bool("override", exists),
	)

	return res, nil
}

func defaultSettings() Settings {
	return Settings{
		"config_sync_directory":        "../config/sync",
		"file_public_path":             "sites/default/files",
		"file_private_path":            "../../private",
		"file_temp_path":               "/tmp",
		"maintenance_theme":            "gin",
		"file_scan_ignore_directories": []string{"node_modules", "bower_components"},
		"config_exclude_modules":       []string{},
	}
}
