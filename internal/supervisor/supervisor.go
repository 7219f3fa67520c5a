// Package supervisor launches one child process per service, streams its
// output into the service record and resolves a per-launch future once the
// service is ready or dead.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

// Signaler is the readiness gate as seen by the supervisor.
type Signaler interface {
	Signal(name string) bool
}

// Spawner runs fn on its own execution unit.
type Spawner func(fn func())

// Supervisor launches service processes.
type Supervisor struct {
	gate      Signaler
	logger    logger.Logger
	matcher   Matcher
	metrics   *Metrics
	spawn     Spawner
	waitDelay time.Duration
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithMatcher sets the readiness line matcher.
func WithMatcher(m Matcher) Option {
	return func(s *Supervisor) { s.matcher = m }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithSpawner replaces the default "go fn()" used to run each launch.
func WithSpawner(sp Spawner) Option {
	return func(s *Supervisor) { s.spawn = sp }
}

// WithWaitDelay bounds how long a process may outlive the stop signal sent
// on launch context cancellation before it is killed. It also bounds output
// copying after exit, e.g. when a grandchild keeps the pipe open.
func WithWaitDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.waitDelay = d }
}

// New creates a supervisor that reports readiness to gate.
func New(gate Signaler, log logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		gate:      gate,
		logger:    log,
		matcher:   DefaultMatcher(),
		spawn:     func(fn func()) { go fn() },
		waitDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launch starts the service process asynchronously and returns its future.
// It never fails: start errors resolve the future and are recorded on svc.
// Cancelling ctx stops the process, or prevents it from starting at all.
func (s *Supervisor) Launch(ctx context.Context, svc *domain.Service, spec domain.LaunchSpec) *Launch {
	l := newLaunch(svc)
	s.spawn(func() { s.run(ctx, l, spec) })
	return l
}

// Fail resolves a launch that could not even be prepared (no launch spec).
func (s *Supervisor) Fail(svc *domain.Service, err error) *Launch {
	l := newLaunch(svc)
	lerr := &LaunchError{Service: svc.Name(), Op: "prepare", Err: err}

	s.logger.Error("failed to launch service",
		logger.String("service", svc.Name()),
		logger.String("launch_id", l.ID),
		logger.Error(lerr))

	s.metrics.launched()
	s.metrics.failed()
	svc.SetExitCode(ExitCodeFailed)
	l.markAttempted()
	l.resolve(OutcomeFailed, lerr)
	s.signal(l)
	return l
}

func (s *Supervisor) run(ctx context.Context, l *Launch, spec domain.LaunchSpec) {
	svc := l.Service
	log := s.logger.With(
		logger.String("service", svc.Name()),
		logger.String("launch_id", l.ID),
	)

	// Ready or dead: whatever happens below, nobody waits forever.
	defer func() {
		l.markAttempted()
		l.resolve(OutcomeExited, nil)
		s.signal(l)
	}()

	log.Info("launching service",
		logger.String("executable", spec.Executable),
		logger.Strings("args", spec.Args),
		logger.String("dir", spec.WorkingDirectory))
	s.metrics.launched()

	cmd := exec.CommandContext(ctx, spec.Executable, spec.Args...)
	cmd.Dir = spec.WorkingDirectory
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Cancel = func() error { return cmd.Process.Signal(stopSignal) }
	cmd.WaitDelay = s.waitDelay

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()

		lerr := &LaunchError{Service: svc.Name(), Op: "start", Err: err}
		log.Error("failed to launch service", logger.Error(lerr))
		s.metrics.failed()
		svc.SetExitCode(exitCode(nil, err))
		l.markAttempted()
		l.resolve(OutcomeFailed, lerr)
		return
	}

	pid := cmd.Process.Pid
	svc.SetPID(pid)
	l.markAttempted()
	s.metrics.started()
	log.Info("service running", logger.Int("pid", pid))

	if len(svc.Description.Bindings) == 0 {
		l.resolve(OutcomeStarted, nil)
	}

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		s.scan(l, pr, log)
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	<-scanned

	code := exitCode(cmd.ProcessState, waitErr)
	svc.SetExitCode(code)
	s.metrics.exited(svc.Name())
	log.Info("process exited", logger.Int("exit_code", code))
}

// scan consumes combined output line by line until r is exhausted.
// Lines have no length limit; a final line without newline is kept.
func (s *Supervisor) scan(l *Launch, r io.ReadCloser, log logger.Logger) {
	defer func() { _ = r.Close() }()

	bindable := len(l.Service.Description.Bindings) > 0

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" || err == nil {
			line = strings.TrimRight(line, "\r\n")
			l.Service.AppendLog(line)

			if bindable && !l.Resolved() {
				if addr, ok := s.matcher.Match(line); ok {
					s.bound(l, addr, log)
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Warn("stopped reading service output", logger.Error(err))
			}
			return
		}
	}
}

func (s *Supervisor) bound(l *Launch, addr string, log logger.Logger) {
	if !l.resolve(OutcomeBound, nil) {
		return
	}
	l.Service.SetBoundAddress(addr)
	s.signal(l)
	s.metrics.ready(time.Since(l.started))
	log.Info("service bound", logger.String("address", addr))
}

// signal notifies the gate on behalf of the launch, at most once.
// Services without bindings are not gate participants.
func (s *Supervisor) signal(l *Launch) {
	if len(l.Service.Description.Bindings) == 0 {
		return
	}
	l.signalOnce.Do(func() {
		s.gate.Signal(l.Service.Name())
	})
}

// mergeEnv appends overrides to base in a stable order; later entries win.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
