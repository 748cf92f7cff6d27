package geometry

import (
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	T        float64            // Distance along the (unit) ray direction
	Point    core.Vec3          // Point of intersection
	Normal   core.Vec3          // Outward unit surface normal
	Material *material.Material // Surface material, shared
}

// Shape interface for objects that can be hit by rays.
// Hit reports an intersection only when it lies strictly closer than tMax.
type Shape interface {
	Hit(ray core.Ray, tMax float64) (*HitRecord, bool)
}
