package integrator

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// Bias is the distance secondary ray origins are pushed off a surface
const Bias = 1e-3

// Reflect mirrors d about the normal n: d - 2(d·n)n
func Reflect(d, n core.Vec3) core.Vec3 {
	return d.Subtract(n.Multiply(2 * d.Dot(n)))
}

// Refract bends d through a surface with outward normal n using Snell's law.
// A ray leaving the medium (d·n > 0) swaps the indices and flips the normal.
// Total internal reflection returns the zero vector.
func Refract(d, n core.Vec3, refractiveIndex float64) core.Vec3 {
	cosi := -max(-1, min(1, d.Dot(n)))
	etai, etat := 1.0, refractiveIndex
	normal := n
	if cosi < 0 {
		cosi = -cosi
		etai, etat = etat, etai
		normal = n.Negate()
	}

	eta := etai / etat
	k := 1 - eta*eta*(1-cosi*cosi)
	if k < 0 {
		return core.Vec3{}
	}
	return d.Multiply(eta).Add(normal.Multiply(eta*cosi - math.Sqrt(k)))
}

// offsetOrigin moves point off the surface toward the side dir leaves on
func offsetOrigin(point, dir, normal core.Vec3) core.Vec3 {
	if dir.Dot(normal) < 0 {
		return point.Subtract(normal.Multiply(Bias))
	}
	return point.Add(normal.Multiply(Bias))
}
