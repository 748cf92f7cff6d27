package integrator

import (
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// FlatIntegrator colors each pixel with the unlit diffuse color of the
// nearest surface, or the background on a miss
type FlatIntegrator struct{}

// NewFlatIntegrator creates a flat shading integrator
func NewFlatIntegrator() *FlatIntegrator {
	return &FlatIntegrator{}
}

// RayColor implements Integrator
func (f *FlatIntegrator) RayColor(ray core.Ray, s *scene.Scene, stats *TraceStats) core.Vec3 {
	if stats != nil {
		stats.PrimaryRays++
	}
	hit, isHit := s.Intersect(ray)
	if !isHit {
		return s.BackgroundColor(ray.Direction)
	}
	return hit.Material.DiffuseColor
}
