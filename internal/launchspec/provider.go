// Package launchspec turns a service description into the command line,
// working directory and environment of its child process.
package launchspec

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

// ErrExternal is returned when asked for the launch spec of an external service.
var ErrExternal = errors.New("external services are not launched")

// Options are the settings shared by every service.
type Options struct {
	// WorkDir holds one sub directory per service.
	WorkDir string
	// ServiceArgs are passed to every service before its own arguments.
	ServiceArgs []string
	// APIServer is exported to every service as API_SERVER.
	APIServer string
}

// Provider builds launch specs from Options and per-service overrides.
type Provider struct {
	opts Options
	goos string
}

// New creates a provider.
func New(opts Options) *Provider {
	return &Provider{opts: opts, goos: runtime.GOOS}
}

// LaunchSpec returns how to start svc.
//
// By default a service named X runs <WorkDir>/X/X inside <WorkDir>/X with
// --contentRoot=<WorkDir>/X and one --urls=<address> per binding. A run
// override in the manifest replaces the pieces it sets; its env is merged.
func (p *Provider) LaunchSpec(svc *domain.Service) (domain.LaunchSpec, error) {
	desc := svc.Description
	if desc.External {
		return domain.LaunchSpec{}, fmt.Errorf("%w: %s", ErrExternal, desc.Name)
	}
	if p.opts.WorkDir == "" {
		return domain.LaunchSpec{}, errors.New("work directory is not set")
	}

	serviceDir := filepath.Join(p.opts.WorkDir, desc.Name)
	spec := domain.LaunchSpec{
		Executable:       filepath.Join(serviceDir, p.executableName(desc.Name)),
		Args:             p.defaultArgs(desc, serviceDir),
		WorkingDirectory: serviceDir,
		Env:              map[string]string{},
	}
	if p.opts.APIServer != "" {
		spec.Env["API_SERVER"] = p.opts.APIServer
	}

	if run := desc.Run; run != nil {
		if run.Executable != "" {
			spec.Executable = run.Executable
		}
		if run.Args != nil {
			spec.Args = run.Args
		}
		if run.WorkingDirectory != "" {
			spec.WorkingDirectory = p.resolve(run.WorkingDirectory)
		}
		for k, v := range run.Env {
			spec.Env[k] = v
		}
	}

	return spec, nil
}

func (p *Provider) defaultArgs(desc domain.ServiceDescription, serviceDir string) []string {
	args := make([]string, 0, len(p.opts.ServiceArgs)+1+len(desc.Bindings))
	args = append(args, p.opts.ServiceArgs...)
	args = append(args, "--contentRoot="+serviceDir)
	for _, b := range desc.Bindings {
		args = append(args, "--urls="+b.Address)
	}
	return args
}

func (p *Provider) executableName(name string) string {
	if p.goos == "windows" {
		return name + ".exe"
	}
	return name
}

func (p *Provider) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.opts.WorkDir, dir)
}
