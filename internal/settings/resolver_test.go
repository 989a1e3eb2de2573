package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testPaths = Paths{AppRoot: "/srv/app/web", SitePath: "sites/default"}

type countingProber struct {
	exists bool
	err    error
	calls  int
	paths  []string
}

func (p *countingProber) Exists(path string) (bool, error) {
	p.calls++
	p.paths = append(p.paths, path)
	return p.exists, p.err
}

func TestResolveProfileSelection(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    Profile
	}{
		{name: "both absent", signals: Signals{}, want: ProfileDevelopment},
		{name: "staging values", signals: Signals{AppEnv: "staging", ForgeEnv: "dev"}, want: ProfileDevelopment},
		{name: "app env production", signals: Signals{AppEnv: "production"}, want: ProfileProduction},
		{name: "app env production forge env other", signals: Signals{AppEnv: "production", ForgeEnv: "staging"}, want: ProfileProduction},
		{name: "forge env production only", signals: Signals{ForgeEnv: "production"}, want: ProfileProduction},
		{name: "both production", signals: Signals{AppEnv: "production", ForgeEnv: "production"}, want: ProfileProduction},
		{name: "capitalised value", signals: Signals{AppEnv: "Production"}, want: ProfileDevelopment},
		{name: "padded value", signals: Signals{AppEnv: " production "}, want: ProfileDevelopment},
		{name: "upper case forge env", signals: Signals{ForgeEnv: "PRODUCTION"}, want: ProfileDevelopment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testPaths, WithProber(&countingProber{}))

			res, err := r.Resolve(tt.signals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Profile)
			assert.Equal(t, string(tt.want.Verbosity()), res.Config[LoggingConfigObject]["error_level"])
		})
	}
}

func TestResolveSources(t *testing.T) {
	base := []string{
		"/srv/app/web/sites/default/services.yml",
		"/srv/app/web/sites/default/services.local.yml",
	}

	t.Run("development appends development services", func(t *testing.T) {
		res, err := NewResolver(testPaths, WithProber(&countingProber{})).Resolve(Signals{AppEnv: "staging"})
		require.NoError(t, err)
		require.Len(t, res.Sources, 3)
		assert.Equal(t, base, res.Sources[:2])
		assert.Equal(t, "/srv/app/web/sites/development.services.yml", res.Sources[2])
	})

	t.Run("production keeps base sources", func(t *testing.T) {
		res, err := NewResolver(testPaths, WithProber(&countingProber{})).Resolve(Signals{ForgeEnv: "production"})
		require.NoError(t, err)
		assert.Equal(t, base, res.Sources)
	})
}

func TestResolveSettingsConstants(t *testing.T) {
	res, err := NewResolver(testPaths, WithProber(&countingProber{})).Resolve(Signals{})
	require.NoError(t, err)

	assert.Equal(t, Settings{
		"config_sync_directory":        "../config/sync",
		"file_public_path":             "sites/default/files",
		"file_private_path":            "../../private",
		"file_temp_path":               "/tmp",
		"maintenance_theme":            "gin",
		"file_scan_ignore_directories": []string{"node_modules", "bower_components"},
		"config_exclude_modules":       []string{},
	}, res.Settings)
}

func TestResolveOverrideDirective(t *testing.T) {
	for name, signals := range map[string]Signals{"development": {}, "production": {AppEnv: "production"}} {
		t.Run(name+"/present", func(t *testing.T) {
			prober := &countingProber{exists: true}
			res, err := NewResolver(testPaths, WithProber(prober)).Resolve(signals)
			require.NoError(t, err)
			require.NotNil(t, res.Override)
			assert.Equal(t, "/srv/app/web/sites/default/settings.local.yml", res.Override.Path)
			assert.False(t, res.OverrideApplied)
			assert.Equal(t, 1, prober.calls)
		})

		t.Run(name+"/absent", func(t *testing.T) {
			prober := &countingProber{}
			res, err := NewResolver(testPaths, WithProber(prober)).Resolve(signals)
			require.NoError(t, err)
			assert.Nil(t, res.Override)
			assert.Equal(t, 1, prober.calls)
		})
	}
}

func TestResolveCustomOverrideFile(t *testing.T) {
	prober := &countingProber{exists: true}
	paths := testPaths
	paths.OverrideFile = "settings.local.jsonc"

	res, err := NewResolver(paths, WithProber(prober)).Resolve(Signals{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/app/web/sites/default/settings.local.jsonc"}, prober.paths)
	assert.Equal(t, "/srv/app/web/sites/default/settings.local.jsonc", res.Override.Path)
}

func TestResolveProbeError(t *testing.T) {
	prober := &countingProber{err: fs.ErrPermission}

	_, err := NewResolver(testPaths, WithProber(prober)).Resolve(Signals{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProbe)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, 1, prober.calls)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(testPaths, WithProber(&countingProber{exists: true}))
	signals := Signals{AppEnv: "staging"}

	first, err := r.Resolve(signals)
	require.NoError(t, err)
	second, err := r.Resolve(signals)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	a, err := yaml.Marshal(first.Document())
	require.NoError(t, err)
	b, err := yaml.Marshal(second.Document())
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestResolveReturnsFreshValues(t *testing.T) {
	r := NewResolver(testPaths, WithProber(&countingProber{}))

	first, err := r.Resolve(Signals{})
	require.NoError(t, err)
	first.Settings["maintenance_theme"] = "claro"
	first.Settings["file_scan_ignore_directories"].([]string)[0] = "vendor"
	first.Sources[0] = "mutated"

	second, err := r.Resolve(Signals{})
	require.NoError(t, err)
	assert.Equal(t, "gin", second.Settings["maintenance_theme"])
	assert.Equal(t, []string{"node_modules", "bower_components"}, second.Settings["file_scan_ignore_directories"])
	assert.Equal(t, "/srv/app/web/sites/default/services.yml", second.Sources[0])
}

func TestReadSignals(t *testing.T) {
	env := map[string]string{EnvAppEnv: "Production ", "OTHER": "production"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	signals := ReadSignals(lookup)
	assert.Equal(t, Signals{AppEnv: "Production "}, signals)
	assert.False(t, signals.IsProduction())
}

func TestReadSignalsFromProcessEnv(t *testing.T) {
	t.Setenv(EnvAppEnv, "")
	t.Setenv(EnvForgeEnv, "production")

	signals := ReadSignals(nil)
	assert.True(t, signals.IsProduction())
}

func TestStatProber(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "settings.local.yml")
	require.NoError(t, os.WriteFile(existing, []byte("settings: {}\n"), 0o600))

	ok, err := StatProber{}.Exists(existing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = StatProber{}.Exists(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.False(t, ok)

	// A path through a regular file fails with ENOTDIR rather than ENOENT.
	_, err = StatProber{}.Exists(filepath.Join(existing, "child"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
}

func TestProfileAttributes(t *testing.T) {
	assert.False(t, ProfileProduction.ErrorDisplay())
	assert.Equal(t, ErrorReportingNone, ProfileProduction.ErrorReporting())
	assert.Equal(t, VerbosityHide, ProfileProduction.Verbosity())

	assert.True(t, ProfileDevelopment.ErrorDisplay())
	assert.Equal(t, ErrorReportingAll, ProfileDevelopment.ErrorReporting())
	assert.Equal(t, VerbosityVerbose, ProfileDevelopment.Verbosity())

	assert.Equal(t, "production", ProfileProduction.String())
	assert.Equal(t, "profile(7)", Profile(7).String())
}
