package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MrSnakeDoc/muster/internal/config"
	"github.com/MrSnakeDoc/muster/internal/httpserver"
	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/launchspec"
	"github.com/MrSnakeDoc/muster/internal/logger"
	"github.com/MrSnakeDoc/muster/internal/manifest"
	"github.com/MrSnakeDoc/muster/internal/orchestrator"
	"github.com/MrSnakeDoc/muster/internal/redis"
	"github.com/MrSnakeDoc/muster/internal/scheduler"
	"github.com/MrSnakeDoc/muster/internal/supervisor"
	"github.com/MrSnakeDoc/muster/internal/version"
)

// probedProtocol is the binding protocol of external services muster can ping.
const probedProtocol = "redis"

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	orchestrator *orchestrator.Orchestrator
	prober       *scheduler.ExternalProber

	// listening receives the API address once Run has bound it and launched the services.
	listening chan net.Addr
}

// New wires every component from cfg. Configuration errors are returned
// before anything is launched.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	descs, err := manifest.NewLoader(cfg.ServiceFile).Load()
	if err != nil {
		return nil, err
	}
	loggerClient.Info("service manifest loaded",
		logger.String("file", cfg.ServiceFile),
		logger.Int("services", len(descs)))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider := launchspec.New(launchspec.Options{
		WorkDir:     cfg.WorkDir,
		ServiceArgs: cfg.ServiceArgs,
		APIServer:   cfg.APIServer,
	})

	orch, err := orchestrator.New(descs, provider, loggerClient, orchestrator.Options{
		Matcher:    &supervisor.Matcher{Marker: cfg.ReadyMarker, Scheme: cfg.ReadyScheme},
		StopGrace:  cfg.StopGrace,
		Registerer: reg,
	})
	if err != nil {
		return nil, err
	}

	probeOpts := redis.ProbeOptions{
		DialTimeout:   cfg.RedisDT,
		ReadTimeout:   cfg.RedisRT,
		WriteTimeout:  cfg.RedisWT,
		Timeout:       cfg.ProbeTimeout,
		RetryInterval: cfg.ProbeRetryInterval,
		MaxWait:       cfg.ProbeMaxWait,
		PingTimeout:   cfg.ProbePingTimeout,
		WarnThreshold: cfg.ProbeWarnThreshold,
	}
	if err := probeOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid probe configuration: %w", err)
	}

	probeTrigger := make(chan struct{}, 1)
	prober := scheduler.NewExternalProber(
		orch.AllServices(),
		probedProtocol,
		func(ctx context.Context, addr string) error {
			return redis.Probe(ctx, addr, probeOpts, loggerClient)
		},
		loggerClient,
		cfg.ProbeInterval,
		probeTrigger,
	)

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Orchestrator: orch,
		Gatherer:     reg,
	}
	if len(prober.Targets()) > 0 {
		d.Prober = prober
		d.ProbeTrigger = probeTrigger
	}

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       httpserver.New(cfg, loggerClient, d),
		orchestrator: orch,
		prober:       prober,
		listening:    make(chan net.Addr, 1),
	}, nil
}

// Run starts the services and the API, then blocks until parent is done or
// SIGINT/SIGTERM arrives, and tears everything down.
func (a *App) Run(parent context.Context) error {
	a.logger.Infof("🚀 Starting muster %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("muster %s", version.String())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bind first so a busy port fails before any service is launched.
	ln, err := a.server.Listen()
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.ListenPort, err)
	}

	a.orchestrator.Start()
	a.listening <- ln.Addr()
	a.prober.Start(ctx)

	go func() {
		if err := a.orchestrator.AwaitInitialized(ctx); err == nil {
			a.logger.Info("✅ all bindable services are ready or dead")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		a.logger.Error("http server failed, stopping services", logger.Error(runErr))
	}

	a.prober.Stop()

	// Services go first: shutdown releases the gate, which unblocks any
	// request still waiting on the services list.
	servicesCtx, cancelServices := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout+a.cfg.StopGrace)
	defer cancelServices()
	res := a.orchestrator.Shutdown(servicesCtx)
	a.logger.Info("services stopped", logger.Int("terminated", res.Attempted))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("failed to stop server", logger.Error(err))
	}

	_ = a.logger.Sync()
	if runErr != nil {
		return runErr
	}

	a.logger.Info("✅ muster stopped cleanly")
	return nil
}
