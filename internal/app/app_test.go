package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/muster/internal/config"
	"github.com/MrSnakeDoc/muster/internal/domain"
)

func testConfig(t *testing.T, manifest string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "muster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	return &config.Config{
		ListenPort:         "127.0.0.1:0",
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "error",
		ServiceFile:        path,
		WorkDir:            dir,
		APIServer:          "https://localhost:5001",
		ReadyMarker:        "Now listening on",
		ReadyScheme:        "http",
		StopGrace:          time.Second,
		ProbeInterval:      0,
		ProbeTimeout:       200 * time.Millisecond,
		ProbeRetryInterval: 50 * time.Millisecond,
		ProbeMaxWait:       100 * time.Millisecond,
		ProbePingTimeout:   100 * time.Millisecond,
		RedisDT:            100 * time.Millisecond,
		RedisRT:            100 * time.Millisecond,
		RedisWT:            100 * time.Millisecond,
	}
}

func shellManifest(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return strings.ReplaceAll(`services:
  - name: web
    bindings:
      - address: http://127.0.0.1:7001
    run:
      executable: SH
      workingDirectory: .
      args: ["-c", "echo \"Now listening on: http://127.0.0.1:7001\"; exec sleep 30"]
  - name: worker
    run:
      executable: SH
      workingDirectory: .
      args: ["-c", "echo working; exec sleep 30"]
  - name: cache
    external: true
    bindings:
      - address: redis://127.0.0.1:1
`, "SH", sh)
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	cfg := testConfig(t, "services: []\n")
	cfg.ServiceFile = ""
	_, err := New(cfg)
	assert.ErrorContains(t, err, "no service file")

	cfg = testConfig(t, "services:\n  - name: a\n  - name: a\n")
	_, err = New(cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidService)

	cfg = testConfig(t, "services:\n  - name: a\n    bogus: true\n")
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRunServesStateAndStopsServices(t *testing.T) {
	a, err := New(testConfig(t, shellManifest(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	var addr net.Addr
	select {
	case addr = <-a.listening:
	case err := <-runErr:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("API never bound")
	}

	waitCtx, cancelWait := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelWait()
	require.NoError(t, a.orchestrator.WaitStarted(waitCtx))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get("http://" + addr.String() + "/api/v1/services")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []domain.ServiceView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 3)
	assert.Equal(t, "web", views[0].Name)
	assert.Equal(t, "http://127.0.0.1:7001", views[0].BoundAddress)
	assert.NotNil(t, views[1].PID)
	assert.True(t, views[2].External)

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for _, svc := range a.orchestrator.AllServices() {
		if svc.Description.External {
			continue
		}
		_, exited := svc.ExitCode()
		assert.True(t, exited, svc.Name())
	}
}

func TestRunFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := testConfig(t, "services:\n  - name: worker\n    run:\n      executable: /nonexistent\n")
	cfg.ListenPort = ln.Addr().String()
	a, err := New(cfg)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, a.orchestrator.Launches(), "nothing launches when the API cannot bind")
}
