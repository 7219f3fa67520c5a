package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

type fakeOrchestrator struct {
	services []*domain.Service
	ready    chan struct{}
	pending  atomic.Int32
}

func newFakeOrchestrator(services ...*domain.Service) *fakeOrchestrator {
	return &fakeOrchestrator{services: services, ready: make(chan struct{})}
}

func (f *fakeOrchestrator) AwaitInitialized(ctx context.Context) error {
	select {
	case <-f.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeOrchestrator) Initialized() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

func (f *fakeOrchestrator) Pending() int { return int(f.pending.Load()) }

func (f *fakeOrchestrator) ServiceByName(name string) (*domain.Service, bool) {
	for _, s := range f.services {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func (f *fakeOrchestrator) AllServices() []*domain.Service { return f.services }

type fakeProber struct{ last time.Time }

func (p fakeProber) Targets() []*domain.Service { return nil }
func (p fakeProber) LastRound() time.Time       { return p.last }

func sampleServices() []*domain.Service {
	web := domain.NewService(domain.ServiceDescription{
		Name:     "web",
		Bindings: []domain.Binding{{Name: "default", Address: "http://localhost:7001", Protocol: "http"}},
	})
	web.SetPID(4242)
	web.AppendLog("Now listening on: http://localhost:7001")
	web.SetBoundAddress("http://localhost:7001")

	cache := domain.NewService(domain.ServiceDescription{
		Name:     "cache",
		External: true,
		Bindings: []domain.Binding{{Name: "default", Address: "redis://localhost:6379", Protocol: "redis"}},
	})
	cache.SetReachable(false)

	return []*domain.Service{web, cache}
}

func newTestRouter(t *testing.T, o deps.Orchestrator, mutate ...func(*deps.Deps)) http.Handler {
	t.Helper()
	d := deps.Deps{
		Logger:       logger.NewNop(),
		StartTime:    time.Now(),
		Version:      "test",
		Orchestrator: o,
		Gatherer:     prometheus.NewRegistry(),
	}
	for _, m := range mutate {
		m(&d)
	}
	return NewRouter(d.Logger, d)
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexListsEntryPoints(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator())

	rec := do(t, h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var urls []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &urls))
	assert.Equal(t, []string{
		"http://example.com/api/v1/services",
		"http://example.com/api/v1/logs/{service}",
	}, urls)
}

func TestServicesWaitsForInitialization(t *testing.T) {
	o := newFakeOrchestrator(sampleServices()...)
	h := newTestRouter(t, o)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(t, h, http.MethodGet, "/api/v1/services") }()

	select {
	case <-done:
		t.Fatal("services responded before initialization")
	case <-time.After(50 * time.Millisecond):
	}

	close(o.ready)
	rec := <-done
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var views []domain.ServiceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "web", views[0].Name)
	require.NotNil(t, views[0].PID)
	assert.Equal(t, 4242, *views[0].PID)
	assert.Equal(t, domain.StateRunning, views[0].State)
	assert.Equal(t, "cache", views[1].Name)
	assert.True(t, views[1].External)
	assert.Nil(t, views[1].PID)
}

func TestServicesGivesUpWithRequestContext(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator(sampleServices()...))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServiceByName(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator(sampleServices()...))

	rec := do(t, h, http.MethodGet, "/api/v1/services/web")
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.ServiceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "web", view.Name)
	assert.Equal(t, "http://localhost:7001", view.BoundAddress)

	rec = do(t, h, http.MethodGet, "/api/v1/services/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Unknown service nope"}`, rec.Body.String())
}

func TestLogsByName(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator(sampleServices()...))

	rec := do(t, h, http.MethodGet, "/api/v1/logs/web")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Now listening on: http://localhost:7001"]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/logs/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/logs/ghost")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Unknown service ghost"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	o := newFakeOrchestrator()
	o.pending.Store(2)
	h := newTestRouter(t, o)

	rec := do(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ready":false,"pending":2}`, rec.Body.String())

	close(o.ready)
	rec = do(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true,"pending":0}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator())

	rec := do(t, h, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestOperationalEndpointsHonourCIDRs(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator(), func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	// httptest requests come from 192.0.2.1.
	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/v1/infra"} {
		rec := do(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/services/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code, "service API is not restricted")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "muster_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	h := newTestRouter(t, newFakeOrchestrator(), func(d *deps.Deps) { d.Gatherer = reg })

	rec := do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "muster_test_total 1")
}

func TestInfra(t *testing.T) {
	o := newFakeOrchestrator(sampleServices()...)
	close(o.ready)
	h := newTestRouter(t, o, func(d *deps.Deps) { d.Prober = fakeProber{} })

	rec := do(t, h, http.MethodGet, "/api/v1/infra")
	require.Equal(t, http.StatusOK, rec.Code)

	var body infraBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Initialized)
	assert.Equal(t, 2, body.Services)
	assert.Equal(t, 1, body.Running)
	assert.Equal(t, "never", body.LastProbe)
	require.Contains(t, body.External, "cache")
	assert.False(t, body.External["cache"].OK)
	assert.Equal(t, "redis://localhost:6379", body.External["cache"].Address)
}

type infraBody struct {
	Initialized bool   `json:"initialized"`
	Services    int    `json:"services"`
	Running     int    `json:"running"`
	LastProbe   string `json:"last_probe"`
	External    map[string]struct {
		OK      bool   `json:"ok"`
		Address string `json:"address"`
	} `json:"external"`
}

func TestProbeTrigger(t *testing.T) {
	trigger := make(chan struct{}, 1)
	h := newTestRouter(t, newFakeOrchestrator(), func(d *deps.Deps) { d.ProbeTrigger = trigger })

	rec := do(t, h, http.MethodPost, "/api/v1/probe")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/probe")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "trigger buffer is full")
	assert.True(t, strings.Contains(rec.Body.String(), "already in progress"))
}

func TestProbeRouteAbsentWithoutTrigger(t *testing.T) {
	h := newTestRouter(t, newFakeOrchestrator())

	rec := do(t, h, http.MethodPost, "/api/v1/probe")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
