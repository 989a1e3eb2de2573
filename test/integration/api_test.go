package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/forge-settings/internal/api"
	"github.com/eugenenazirov/forge-settings/internal/settings"
)

type settingsBody struct {
	Settings       map[string]any               `json:"settings"`
	Config         map[string]map[string]string `json:"config"`
	ContainerYAMLs []string                     `json:"container_yamls"`
	Logging        struct {
		Profile    string `json:"profile"`
		ErrorLevel string `json:"error_level"`
	} `json:"logging"`
	Override *struct {
		Path    string `json:"path"`
		Applied bool   `json:"applied"`
	} `json:"override"`
}

func newRouter(t *testing.T, appRoot string) http.Handler {
	t.Helper()

	paths := settings.Paths{AppRoot: appRoot, SitePath: "sites/default"}
	logger := zaptest.NewLogger(t)
	loader := settings.NewLoader(settings.NewResolver(paths, settings.WithLogger(logger)), nil, logger)
	handler := api.NewHandler(loader, api.WithHandlerLogger(logger))
	return api.NewRouter(handler, logger, api.WithRateLimit(0, 0))
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func resolve(t *testing.T, handler http.Handler, signals settings.Signals) settingsBody {
	t.Helper()

	payload, err := json.Marshal(signals)
	if err != nil {
		t.Fatalf("marshal signals: %v", err)
	}
	rec := performRequest(t, handler, http.MethodPost, "/api/resolve", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from resolve, got %d: %s", rec.Code, rec.Body.String())
	}

	var body settingsBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestIntegrationFlow(t *testing.T) {
	appRoot := t.TempDir()
	handler := newRouter(t, appRoot)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	dev := resolve(t, handler, settings.Signals{AppEnv: "staging"})
	if dev.Logging.Profile != "development" || len(dev.ContainerYAMLs) != 3 || dev.Override != nil {
		t.Fatalf("unexpected development resolution: %+v", dev)
	}
	if want := filepath.Join(appRoot, "sites", "development.services.yml"); dev.ContainerYAMLs[2] != want {
		t.Fatalf("expected %s, got %s", want, dev.ContainerYAMLs[2])
	}

	// Dropping an override file in the site directory takes effect on the next request.
	siteDir := filepath.Join(appRoot, "sites", "default")
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	override := []byte(`
settings:
  file_private_path: /var/private
config:
  system.logging:
    error_level: verbose
container_yamls:
  - ` + filepath.Join(siteDir, "debug.services.yml") + `
`)
	if err := os.WriteFile(filepath.Join(siteDir, settings.DefaultOverrideFile), override, 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}

	prod := resolve(t, handler, settings.Signals{ForgeEnv: "production"})
	if prod.Logging.Profile != "production" || prod.Logging.ErrorLevel != "hide" {
		t.Fatalf("unexpected production logging: %+v", prod.Logging)
	}
	if prod.Override == nil || !prod.Override.Applied {
		t.Fatalf("expected override to be applied, got %+v", prod.Override)
	}
	if prod.Settings["file_private_path"] != "/var/private" {
		t.Fatalf("expected override setting, got %v", prod.Settings["file_private_path"])
	}
	if prod.Config["system.logging"]["error_level"] != "verbose" {
		t.Fatalf("expected override config, got %v", prod.Config)
	}
	if len(prod.ContainerYAMLs) != 3 || prod.ContainerYAMLs[2] != filepath.Join(siteDir, "debug.services.yml") {
		t.Fatalf("unexpected container yamls: %v", prod.ContainerYAMLs)
	}
}

func TestIntegrationBrokenOverride(t *testing.T) {
	appRoot := t.TempDir()
	siteDir := filepath.Join(appRoot, "sites", "default")
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(siteDir, settings.DefaultOverrideFile), []byte("settings: ["), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}

	rec := performRequest(t, newRouter(t, appRoot), http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for broken override, got %d", rec.Code)
	}
}
