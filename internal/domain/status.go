package domain

// State is the coarse lifecycle of a service as seen by status readers.
type State string

const (
	StateRunning State = "Running"
	StateStopped State = "Stopped"
)

// ServiceView is the read-only snapshot served by the status API. Logs are excluded.
type ServiceView struct {
	Name         string    `json:"name"`
	PID          *int      `json:"pid"`
	State        State     `json:"state"`
	ExitCode     *int      `json:"exitCode"`
	External     bool      `json:"external"`
	Bindings     []Binding `json:"bindings"`
	BoundAddress string    `json:"boundAddress,omitempty"`
	Reachable    *bool     `json:"reachable,omitempty"`
}

// View snapshots the service.
func (s *Service) View() ServiceView {
	v := ServiceView{
		Name:         s.Name(),
		State:        s.State(),
		External:     s.Description.External,
		Bindings:     s.Description.Bindings,
		BoundAddress: s.BoundAddress(),
		Reachable:    s.Reachable(),
	}
	if v.Bindings == nil {
		v.Bindings = []Binding{}
	}
	if pid, ok := s.PID(); ok {
		v.PID = &pid
	}
	if code, ok := s.ExitCode(); ok {
		v.ExitCode = &code
	}
	return v
}
