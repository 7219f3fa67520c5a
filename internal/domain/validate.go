package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidService is returned for unnamed or duplicated services.
	ErrInvalidService = errors.New("invalid service description")

	// ErrInvalidBinding is returned for bindings without address or protocol.
	ErrInvalidBinding = errors.New("invalid binding")
)

// Validate checks a single description.
func (d ServiceDescription) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidService)
	}

	seen := make(map[string]bool, len(d.Bindings))
	for i, b := range d.Bindings {
		switch {
		case b.Address == "":
			return fmt.Errorf("%w: service %q binding #%d has no address", ErrInvalidBinding, d.Name, i)
		case b.Protocol == "":
			return fmt.Errorf("%w: service %q binding %q has no protocol", ErrInvalidBinding, d.Name, b.Address)
		case seen[b.Name]:
			return fmt.Errorf("%w: service %q declares binding %q twice", ErrInvalidBinding, d.Name, b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// ValidateAll checks every description and rejects duplicate names.
func ValidateAll(descs []ServiceDescription) error {
	names := make(map[string]bool, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return err
		}
		if names[d.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidService, d.Name)
		}
		names[d.Name] = true
	}
	return nil
}
