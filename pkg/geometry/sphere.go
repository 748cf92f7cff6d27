package geometry

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// Sphere represents a sphere shape
type Sphere struct {
	Center   core.Vec3
	Radius   float64
	Material *material.Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, mat *material.Material) *Sphere {
	if mat == nil {
		mat = material.Default()
	}
	return &Sphere{
		Center:   center,
		Radius:   radius,
		Material: mat,
	}
}

// RayIntersect returns the distance to the nearest intersection ahead of the
// ray origin. The direction must be normalized; t is only metric for unit
// directions.
func (s *Sphere) RayIntersect(origin, direction core.Vec3) (float64, bool) {
	// Project the center onto the ray
	l := s.Center.Subtract(origin)
	tca := l.Dot(direction)
	d2 := l.Dot(l) - tca*tca
	r2 := s.Radius * s.Radius
	if d2 > r2 {
		return 0, false
	}

	thc := math.Sqrt(r2 - d2)
	t0 := tca - thc
	t1 := tca + thc
	if t0 < 0 {
		// Origin is inside the sphere, use the far root
		t0 = t1
	}
	if t0 < 0 {
		return 0, false
	}
	return t0, true
}

// Hit tests if a ray intersects with the sphere closer than tMax
func (s *Sphere) Hit(ray core.Ray, tMax float64) (*HitRecord, bool) {
	t, ok := s.RayIntersect(ray.Origin, ray.Direction)
	if !ok || t >= tMax {
		return nil, false
	}

	point := ray.At(t)
	return &HitRecord{
		T:        t,
		Point:    point,
		Normal:   point.Subtract(s.Center).Normalize(),
		Material: s.Material,
	}, true
}
