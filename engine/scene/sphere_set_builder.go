package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-bounds/common"
)

// SphereSetBuilderOption is a functional option for configuring a SphereSet.
// Use the With* functions to create options.
type SphereSetBuilderOption func(s *sphereSet)

// WithSpheres sets the spheres uploaded at creation.
//
// Parameters:
//   - spheres: the initial spheres
//
// Returns:
//   - SphereSetBuilderOption: option function to apply
func WithSpheres(spheres ...common.Sphere) SphereSetBuilderOption {
	return func(s *sphereSet) {
		s.spheres = append(s.spheres, spheres...)
	}
}

// WithLabel sets the prefix of every buffer label.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - SphereSetBuilderOption: option function to apply
func WithLabel(label string) SphereSetBuilderOption {
	return func(s *sphereSet) {
		if label != "" {
			s.label = label
		}
	}
}

// WithLogger sets the logger used for resize messages.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - SphereSetBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SphereSetBuilderOption {
	return func(s *sphereSet) {
		if logger != nil {
			s.logger = logger
		}
	}
}
