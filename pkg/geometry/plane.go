package geometry

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// CheckerboardPlane is a bounded horizontal plane with a procedural two-color
// checker pattern. The pattern parity is int(Scale*x+1000) + int(Scale*z),
// both truncated toward zero.
type CheckerboardPlane struct {
	Y         float64 // Plane height
	HalfWidth float64 // Extent along x: |x| < HalfWidth
	ZNear     float64 // Extent along z: ZFar < z < ZNear
	ZFar      float64
	Scale     float64 // Checks per world unit

	odd  *material.Material
	even *material.Material
}

const checkerOffset = 1000

// NewCheckerboardPlane creates the ground plane y = -4 spanning |x| < 10 and
// -30 < z < -10, with white and orange checks darkened to 30%
func NewCheckerboardPlane() *CheckerboardPlane {
	return NewCheckerboardPlaneWithColors(-4, 10, -10, -30,
		core.NewVec3(1, 1, 1).Multiply(0.3),
		core.NewVec3(1, 0.7, 0.3).Multiply(0.3))
}

// NewCheckerboardPlaneWithColors creates a checkerboard plane with custom
// bounds and check colors
func NewCheckerboardPlaneWithColors(y, halfWidth, zNear, zFar float64, oddColor, evenColor core.Vec3) *CheckerboardPlane {
	base := material.Default()
	return &CheckerboardPlane{
		Y:         y,
		HalfWidth: halfWidth,
		ZNear:     zNear,
		ZFar:      zFar,
		Scale:     0.5,
		odd:       base.WithDiffuseColor(oddColor),
		even:      base.WithDiffuseColor(evenColor),
	}
}

// Hit tests if a ray intersects the bounded plane closer than tMax
func (p *CheckerboardPlane) Hit(ray core.Ray, tMax float64) (*HitRecord, bool) {
	// Rays (nearly) parallel to the plane never hit it
	if math.Abs(ray.Direction.Y) <= 1e-3 {
		return nil, false
	}

	t := (p.Y - ray.Origin.Y) / ray.Direction.Y
	if t <= 0 || t >= tMax {
		return nil, false
	}

	point := ray.At(t)
	if math.Abs(point.X) >= p.HalfWidth || point.Z >= p.ZNear || point.Z <= p.ZFar {
		return nil, false
	}

	return &HitRecord{
		T:        t,
		Point:    point,
		Normal:   core.NewVec3(0, 1, 0),
		Material: p.MaterialAt(point),
	}, true
}

// MaterialAt returns the check material at a point on the plane. The x offset
// keeps the x term positive inside the plane bounds; z is truncated, so on
// the default plane (z < 0) the z cells are ceil(0.5*z).
func (p *CheckerboardPlane) MaterialAt(point core.Vec3) *material.Material {
	parity := int(p.Scale*point.X+checkerOffset) + int(p.Scale*point.Z)
	if parity&1 != 0 {
		return p.odd
	}
	return p.even
}
