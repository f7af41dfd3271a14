package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/endpoint"
	"github.com/nerrad567/graylight/internal/infrastructure/config"
	"github.com/nerrad567/graylight/internal/infrastructure/database"
	"github.com/nerrad567/graylight/internal/infrastructure/logging"
	"github.com/nerrad567/graylight/internal/light"
	"github.com/nerrad567/graylight/internal/virtual"
	"github.com/nerrad567/graylight/migrations"
)

// fakeEndpoint is an in-process multi-channel endpoint.
type fakeEndpoint struct {
	mu       sync.Mutex
	puts     int
	gets     int
	response string
	status   int
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r.Body)

	if r.Method == http.MethodPut {
		f.puts++
	} else {
		f.gets++
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	_, _ = io.WriteString(w, f.response)
}

func (f *fakeEndpoint) counts() (puts, gets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts, f.gets
}

func (f *fakeEndpoint) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return errors.New("broker unreachable") }

type testEnv struct {
	srv      *Server
	router   http.Handler
	lights   *light.Registry
	endpoint *fakeEndpoint
	history  *light.SQLiteHistoryRepository
}

// testServer wires a server over a real registry, drivers, virtual core and
// SQLite history, with one endpoint served by httptest.
//
// Lights:
//
//	10: virtual -> [1, 2, 3]
//	1, 2: native_multi on the fake endpoint, channels 1 and 2
//	3: memory
//	20: virtual with no linked_lights
func testServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	ep := &fakeEndpoint{response: `{"lights":{"1":{"on":true,"bri":200},"2":{"on":false,"bri":100}}}`}
	httpSrv := httptest.NewServer(ep)
	t.Cleanup(httpSrv.Close)
	addr := strings.TrimPrefix(httpSrv.URL, "http://")

	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "graylight.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	history := light.NewSQLiteHistoryRepository(db.DB)

	lights := light.NewRegistry()
	defs := []light.Definition{
		{ID: "10", Name: "Kitchen", Protocol: light.ProtocolVirtual, ProtocolConfig: map[string]any{"linked_lights": []any{"1", "2", "3"}}},
		{ID: "1", Name: "Kitchen 1", Protocol: light.ProtocolNativeMulti, ProtocolConfig: map[string]any{"ip": addr, "light_nr": 1}},
		{ID: "2", Name: "Kitchen 2", Protocol: light.ProtocolNativeMulti, ProtocolConfig: map[string]any{"ip": addr, "light_nr": 2}},
		{ID: "3", Name: "Pantry", Protocol: light.ProtocolMemory, State: light.State{"on": false, "bri": 54}},
		{ID: "20", Name: "Empty", Protocol: light.ProtocolVirtual},
	}
	for _, def := range defs {
		if err := lights.Add(light.New(def)); err != nil {
			t.Fatalf("Add(%s) error = %v", def.ID, err)
		}
	}

	log := logging.Discard()
	client := endpoint.NewClient(time.Second)
	drivers := driver.NewRegistry()
	drivers.Register(light.ProtocolMemory, driver.MemoryDriver{})
	drivers.Register(light.ProtocolNativeMulti, driver.NewNativeMultiDriver(client))

	recorder := virtual.NewHistoryRecorder(history, nil, log)
	drivers.SetAdvertiser(recorder.Advertise)

	cfg := virtual.Config{MaxConcurrency: 4, MaxDepth: 8}
	fwd := virtual.NewForwarder(lights, drivers, client, cfg, log)
	agg := virtual.NewAggregator(lights, drivers, client, cfg, log)
	fwd.SetRecorder(recorder)
	agg.SetRecorder(recorder)
	drivers.Register(light.ProtocolVirtual, virtual.NewDriver(fwd, agg))

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:     log,
		Lights:     lights,
		Drivers:    drivers,
		Forwarder:  fwd,
		Aggregator: agg,
		History:    history,
		Health:     map[string]HealthChecker{"database": db},
		Gatherer:   prometheus.NewRegistry(),
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{srv: srv, router: srv.buildRouter(), lights: lights, endpoint: ep, history: history}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps error = nil, want error")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without registry error = nil, want error")
	}
}

func TestHealth(t *testing.T) {
	env := testServer(t)
	w := env.do(t, http.MethodGet, "/api/v1/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := testServer(t)
	env.srv.health["mqtt"] = failingChecker{}

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestRequestID(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want client value", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := testServer(t)
	w := env.do(t, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t)
	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	env := testServer(t)
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start error = nil, want error")
	}
}
