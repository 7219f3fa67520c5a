package manifest

import (
	"bytes"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

// File is the top-level structure of services.yaml.
type File struct {
	Services []Entry `yaml:"services"`
}

// Entry is one service as written in the manifest.
type Entry struct {
	Name     string              `yaml:"name"`
	External bool                `yaml:"external,omitempty"`
	Bindings []domain.Binding    `yaml:"bindings,omitempty"`
	Run      *domain.RunOverride `yaml:"run,omitempty"`
}

// Loader handles loading and parsing of the services manifest.
type Loader struct {
	filePath string
}

// NewLoader creates a manifest loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads, parses and validates the manifest.
func (l *Loader) Load() ([]domain.ServiceDescription, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read services file: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes. ${VAR} references are expanded from the
// environment first; unknown keys are rejected.
func Parse(data []byte) ([]domain.ServiceDescription, error) {
	data = []byte(os.ExpandEnv(string(data)))

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse services yaml: %w", err)
	}

	descs := make([]domain.ServiceDescription, 0, len(file.Services))
	for _, e := range file.Services {
		descs = append(descs, e.description())
	}

	if err := domain.ValidateAll(descs); err != nil {
		return nil, err
	}
	return descs, nil
}

func (e Entry) description() domain.ServiceDescription {
	bindings := make([]domain.Binding, 0, len(e.Bindings))
	for _, b := range e.Bindings {
		bindings = append(bindings, normalizeBinding(b, len(e.Bindings)))
	}

	return domain.ServiceDescription{
		Name:     e.Name,
		External: e.External,
		Bindings: bindings,
		Run:      e.Run,
	}
}

// normalizeBinding fills the name of a lone binding and derives the protocol
// from a URL address when it was left out.
func normalizeBinding(b domain.Binding, total int) domain.Binding {
	if b.Name == "" && total == 1 {
		b.Name = "default"
	}
	if b.Protocol == "" {
		if u, err := url.Parse(b.Address); err == nil && u.Scheme != "" && u.Host != "" {
			b.Protocol = u.Scheme
		}
	}
	return b
}
