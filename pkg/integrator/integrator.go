package integrator

import (
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// TraceStats counts the rays traced by one render task. Counters are plain
// integers: each task owns its own stats and they are merged after the join.
type TraceStats struct {
	PrimaryRays   int64
	SecondaryRays int64
	ShadowRays    int64
}

// Merge adds another task's counters into s
func (s *TraceStats) Merge(other TraceStats) {
	s.PrimaryRays += other.PrimaryRays
	s.SecondaryRays += other.SecondaryRays
	s.ShadowRays += other.ShadowRays
}

// Total returns the number of rays of every kind
func (s TraceStats) Total() int64 {
	return s.PrimaryRays + s.SecondaryRays + s.ShadowRays
}

// Integrator defines the interface for shading algorithms
type Integrator interface {
	// RayColor computes the linear color seen along a primary ray.
	// stats may be nil.
	RayColor(ray core.Ray, scene *scene.Scene, stats *TraceStats) core.Vec3
}

// New returns the integrator selected by the scene's shading mode
func New(config scene.Config) Integrator {
	if config.Shading == scene.ShadingFlat {
		return NewFlatIntegrator()
	}
	return NewWhittedIntegrator(config)
}
