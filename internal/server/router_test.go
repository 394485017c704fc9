package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/manifest"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/metrics"
)

const (
	testNamespace = "text-effects"
	testURL       = "https://cdn.example.com/clips/intro.mp4"
)

type testEnv struct {
	app      *fiber.App
	store    cache.Store
	filename string
	logs     *bytes.Buffer
}

func newTestEnv(t *testing.T, mergedDir string) *testEnv {
	t.Helper()

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	filename := cache.Filename(testURL, "video", ".mp4", 0)
	if _, err := store.Put(context.Background(), cache.Locator{Namespace: testNamespace, Filename: filename},
		strings.NewReader("video-bytes"), cache.PutOptions{}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	dir, err := store.NamespaceDir(testNamespace)
	if err != nil {
		t.Fatalf("namespace dir failed: %v", err)
	}
	man := manifest.New(testNamespace)
	man.Merge(map[string]manifest.SlotEntry{
		"video": {URL: testURL, Kind: "video", Filename: filename, CachedAt: time.Now().UTC()},
	})
	if err := manifest.Save(dir, man); err != nil {
		t.Fatalf("manifest save failed: %v", err)
	}

	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	app, err := NewApp(AppOptions{
		Logger:    logger,
		Store:     store,
		Namespace: testNamespace,
		MergedDir: mergedDir,
		Metrics:   metrics.NewRecorder(),
	})
	if err != nil {
		t.Fatalf("app init failed: %v", err)
	}
	return &testEnv{app: app, store: store, filename: filename, logs: logs}
}

func doRequest(t *testing.T, app *fiber.App, target string) (int, string, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	headers := map[string]string{
		"Location":     resp.Header.Get("Location"),
		"X-Request-ID": resp.Header.Get("X-Request-ID"),
	}
	return resp.StatusCode, string(body), headers
}

func TestNewAppRequiresDependencies(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("expected error without logger")
	}
	store, _ := cache.NewStore(t.TempDir())
	if _, err := NewApp(AppOptions{Logger: logrus.New(), Store: store, Namespace: "../escape"}); err == nil {
		t.Fatalf("expected invalid namespace error")
	}
}

func TestAssetMapEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	status, body, headers := doRequest(t, env.app, "/-/assets")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, body)
	}
	if headers["X-Request-ID"] == "" {
		t.Fatalf("expected request id header")
	}
	var payload struct {
		Namespace string            `json:"namespace"`
		AssetMap  map[string]string `json:"assetMap"`
		Slots     []slotPayload     `json:"slots"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.AssetMap[testURL] != "/"+env.filename {
		t.Fatalf("unexpected rewrite map: %+v", payload.AssetMap)
	}
	if len(payload.Slots) != 1 || payload.Slots[0].Slot != "video" {
		t.Fatalf("unexpected slots: %+v", payload.Slots)
	}
}

func TestResolveEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	status, _, headers := doRequest(t, env.app, "/-/resolve?url="+testURL)
	if status != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", status)
	}
	if headers["Location"] != "/"+env.filename {
		t.Fatalf("unexpected location %q", headers["Location"])
	}

	status, body, _ := doRequest(t, env.app, "/-/resolve?url=https://cdn.example.com/other.mp4")
	if status != fiber.StatusNotFound || !strings.Contains(body, "not_cached") {
		t.Fatalf("expected not_cached 404, got %d (%s)", status, body)
	}

	status, _, _ = doRequest(t, env.app, "/-/resolve")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without url, got %d", status)
	}
}

func TestResolveMissingFileIsNotCached(t *testing.T) {
	env := newTestEnv(t, "")
	locator := cache.Locator{Namespace: testNamespace, Filename: env.filename}
	if err := env.store.Remove(context.Background(), locator); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	status, _, _ := doRequest(t, env.app, "/-/resolve?url="+testURL)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 when file is gone, got %d", status)
	}
}

func TestServesFilesFromStore(t *testing.T) {
	env := newTestEnv(t, "")

	status, body, _ := doRequest(t, env.app, "/"+env.filename)
	if status != fiber.StatusOK || body != "video-bytes" {
		t.Fatalf("expected cached body, got %d (%s)", status, body)
	}

	status, _, _ = doRequest(t, env.app, "/"+manifest.FileName)
	if status != fiber.StatusNotFound {
		t.Fatalf("manifest must not be served, got %d", status)
	}

	status, _, _ = doRequest(t, env.app, "/missing.mp4")
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for missing file, got %d", status)
	}
}

func TestServesMergedDirectory(t *testing.T) {
	merged := t.TempDir()
	if err := os.WriteFile(filepath.Join(merged, "logo.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatalf("write static: %v", err)
	}
	env := newTestEnv(t, merged)

	status, body, _ := doRequest(t, env.app, "/logo.svg")
	if status != fiber.StatusOK || body != "<svg/>" {
		t.Fatalf("expected static file, got %d (%s)", status, body)
	}
}

func TestDiagnosticsEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	status, body, _ := doRequest(t, env.app, "/-/healthz")
	if status != fiber.StatusOK || !strings.Contains(body, testNamespace) {
		t.Fatalf("unexpected healthz response: %d (%s)", status, body)
	}

	status, body, _ = doRequest(t, env.app, "/-/metrics")
	if status != fiber.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("unexpected metrics response: %d", status)
	}

	status, _, _ = doRequest(t, env.app, "/-/kinds")
	if status != fiber.StatusOK {
		t.Fatalf("expected kinds listing, got %d", status)
	}
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	env := newTestEnv(t, "")
	_, _, headers := doRequest(t, env.app, "/-/healthz")

	logs := env.logs.String()
	if !strings.Contains(logs, "request_complete") {
		t.Fatalf("expected access log, got %s", logs)
	}
	if !strings.Contains(logs, headers["X-Request-ID"]) {
		t.Fatalf("access log should carry request id %s", headers["X-Request-ID"])
	}
}
