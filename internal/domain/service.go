package domain

import "sync"

// Binding is a network endpoint a service declares it will listen on.
type Binding struct {
	Name     string `json:"name" yaml:"name"`
	Address  string `json:"address" yaml:"address"`
	Protocol string `json:"protocol" yaml:"protocol"`
}

// RunOverride replaces pieces of the default launch spec for one service.
// Zero-valued fields keep the default.
type RunOverride struct {
	Executable       string            `yaml:"executable"`
	Args             []string          `yaml:"args"`
	WorkingDirectory string            `yaml:"workingDirectory"`
	Env              map[string]string `yaml:"env"`
}

// ServiceDescription is the immutable description of a service, supplied at startup.
type ServiceDescription struct {
	// Name is the unique key of the service.
	Name string

	// External services are assumed to run outside muster: nothing is launched
	// for them and no pid is ever tracked.
	External bool

	// Bindings may be empty for headless / worker services.
	Bindings []Binding

	// Run is optional.
	Run *RunOverride
}

// Bindable reports whether the service takes part in the readiness gate.
func (d ServiceDescription) Bindable() bool {
	return !d.External && len(d.Bindings) > 0
}

// LaunchSpec is everything needed to start the child process of a service.
type LaunchSpec struct {
	Executable       string
	Args             []string
	WorkingDirectory string
	Env              map[string]string
}

// Service is the mutable runtime record of one ServiceDescription.
//
// Only the supervisor of the service writes pid, exit code, bound address and logs.
// Readers (status API, shutdown) go through the accessors.
type Service struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	Description ServiceDescription

	// ─────────────────────────────
	// Runtime (set once, never reset)
	// ─────────────────────────────

	mu        sync.RWMutex
	pid       *int
	exitCode  *int
	boundAddr string
	exited    chan struct{}

	// ─────────────────────────────
	// Observation
	// ─────────────────────────────

	// reachable is only meaningful for external services that are probed.
	reachable *bool

	// logs is append-only and unbounded.
	logs []string
}

// NewService creates the runtime record of a description.
func NewService(desc ServiceDescription) *Service {
	return &Service{
		Description: desc,
		exited:      make(chan struct{}),
	}
}

// Name returns the unique service name.
func (s *Service) Name() string { return s.Description.Name }

// SetPID records the process id. It returns false when a pid was already set.
func (s *Service) SetPID(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pid != nil {
		return false
	}
	s.pid = &pid
	return true
}

// PID returns the process id, if one was recorded.
func (s *Service) PID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pid == nil {
		return 0, false
	}
	return *s.pid, true
}

// SetExitCode records the exit code and releases Exited waiters.
// It returns false when an exit code was already set.
func (s *Service) SetExitCode(code int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exitCode != nil {
		return false
	}
	s.exitCode = &code
	close(s.exited)
	return true
}

// ExitCode returns the exit code, if the process has terminated.
func (s *Service) ExitCode() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.exitCode == nil {
		return 0, false
	}
	return *s.exitCode, true
}

// Exited is closed once the exit code is recorded.
func (s *Service) Exited() <-chan struct{} { return s.exited }

// State is derived from the exit code.
func (s *Service) State() State {
	if _, ok := s.ExitCode(); ok {
		return StateStopped
	}
	return StateRunning
}

// SetBoundAddress records the address announced on the readiness line.
func (s *Service) SetBoundAddress(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.boundAddr == "" {
		s.boundAddr = addr
	}
}

// BoundAddress returns the announced address, or "" if none was seen.
func (s *Service) BoundAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.boundAddr
}

// SetReachable records the last external probe result.
func (s *Service) SetReachable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reachable = &ok
}

// Reachable returns the last probe result, nil when never probed.
func (s *Service) Reachable() *bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.reachable == nil {
		return nil
	}
	v := *s.reachable
	return &v
}

// AppendLog appends one output line.
func (s *Service) AppendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, line)
}

// Logs returns a copy of the output lines in arrival order.
func (s *Service) Logs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}
