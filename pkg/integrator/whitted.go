package integrator

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

var white = core.NewVec3(1, 1, 1)

// WhittedIntegrator implements recursive Whitted ray tracing: Phong direct
// lighting with hard shadows plus mirror reflection and refraction, blended
// by the material albedo weights
type WhittedIntegrator struct {
	maxDepth int
}

// NewWhittedIntegrator creates a Whitted integrator for the given configuration
func NewWhittedIntegrator(config scene.Config) *WhittedIntegrator {
	return &WhittedIntegrator{maxDepth: config.MaxDepth}
}

// RayColor implements Integrator
func (w *WhittedIntegrator) RayColor(ray core.Ray, s *scene.Scene, stats *TraceStats) core.Vec3 {
	return w.CastRay(ray, s, 0, stats)
}

// CastRay returns the color seen along a ray at the given recursion depth.
// Rays at or beyond the maximum depth, and rays that hit nothing, see the
// background.
func (w *WhittedIntegrator) CastRay(ray core.Ray, s *scene.Scene, depth int, stats *TraceStats) core.Vec3 {
	if depth >= w.maxDepth {
		return s.BackgroundColor(ray.Direction)
	}

	if stats != nil {
		if depth == 0 {
			stats.PrimaryRays++
		} else {
			stats.SecondaryRays++
		}
	}

	hit, isHit := s.Intersect(ray)
	if !isHit {
		return s.BackgroundColor(ray.Direction)
	}

	mat := hit.Material
	albedo := mat.Albedo

	var reflectColor, refractColor core.Vec3
	if albedo.Z != 0 {
		reflectColor = w.traceSecondary(Reflect(ray.Direction, hit.Normal).Normalize(), hit, s, depth, stats)
	}
	if albedo.W != 0 {
		refractDir := Refract(ray.Direction, hit.Normal, mat.RefractiveIndex).Normalize()
		if !refractDir.IsZero() {
			refractColor = w.traceSecondary(refractDir, hit, s, depth, stats)
		}
	}

	diffuse, specular := w.directLighting(ray, hit, s, stats)

	return mat.DiffuseColor.Multiply(diffuse * albedo.X).
		Add(white.Multiply(specular * albedo.Y)).
		Add(reflectColor.Multiply(albedo.Z)).
		Add(refractColor.Multiply(albedo.W))
}

// traceSecondary spawns a reflected or refracted ray from the hit point
func (w *WhittedIntegrator) traceSecondary(dir core.Vec3, hit *geometry.HitRecord, s *scene.Scene, depth int, stats *TraceStats) core.Vec3 {
	origin := offsetOrigin(hit.Point, dir, hit.Normal)
	return w.CastRay(core.NewRay(origin, dir), s, depth+1, stats)
}

// directLighting sums the Phong diffuse and specular intensities of every
// light that is not occluded from the hit point
func (w *WhittedIntegrator) directLighting(ray core.Ray, hit *geometry.HitRecord, s *scene.Scene, stats *TraceStats) (float64, float64) {
	var diffuse, specular float64

	for _, light := range s.Lights {
		lightDir, lightDistance := light.Illuminate(hit.Point)

		if stats != nil {
			stats.ShadowRays++
		}
		shadowOrigin := offsetOrigin(hit.Point, lightDir, hit.Normal)
		if shadowHit, blocked := s.Intersect(core.NewRay(shadowOrigin, lightDir)); blocked {
			if shadowHit.Point.Subtract(shadowOrigin).Length() < lightDistance {
				continue
			}
		}

		diffuse += light.Intensity * max(0, lightDir.Dot(hit.Normal))

		highlight := -Reflect(lightDir.Negate(), hit.Normal).Dot(ray.Direction)
		specular += light.Intensity * math.Pow(max(0, highlight), hit.Material.SpecularExponent)
	}

	return diffuse, specular
}
