package scene

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// Background provides the color seen by rays that escape the scene
type Background interface {
	Color(direction core.Vec3) core.Vec3
}

// SolidBackground returns the same color in every direction
type SolidBackground core.Vec3

// Color implements Background
func (b SolidBackground) Color(core.Vec3) core.Vec3 {
	return core.Vec3(b)
}

// DefaultBackground is the cyan sky used when a scene does not set one
var DefaultBackground = SolidBackground(core.NewVec3(0.2, 0.7, 0.8))

// EnvironmentMap is an equirectangular panorama indexed by ray direction
type EnvironmentMap struct {
	width  int
	height int
	pixels []core.Vec3 // Row-major linear colors
}

// NewEnvironmentMap wraps row-major linear pixels as an environment map.
// It returns nil when the pixel count does not match the dimensions.
func NewEnvironmentMap(width, height int, pixels []core.Vec3) *EnvironmentMap {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil
	}
	return &EnvironmentMap{width: width, height: height, pixels: pixels}
}

// Color implements Background. Longitude comes from atan2(z, x) and latitude
// from acos(y); the direction is normalized first.
func (e *EnvironmentMap) Color(direction core.Vec3) core.Vec3 {
	d := direction.Normalize()
	if d.IsZero() {
		return e.pixels[0]
	}

	u := (math.Atan2(d.Z, d.X)/(2*math.Pi) + 0.5) * float64(e.width)
	v := math.Acos(max(-1, min(1, d.Y))) / math.Pi * float64(e.height)

	a := max(0, min(e.width-1, int(u)))
	b := max(0, min(e.height-1, int(v)))
	return e.pixels[b*e.width+a]
}

// Size returns the environment map dimensions
func (e *EnvironmentMap) Size() (int, int) {
	return e.width, e.height
}
