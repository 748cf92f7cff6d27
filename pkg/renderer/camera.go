package renderer

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// Camera is a pinhole at the origin looking down -z with +y up
type Camera struct {
	width, height int
	scale         float64 // tan(fov/2)
	aspect        float64 // width / height
}

// NewCamera creates a camera for an image of the given size and vertical
// field of view in radians
func NewCamera(width, height int, fov float64) *Camera {
	return &Camera{
		width:  width,
		height: height,
		scale:  math.Tan(fov / 2),
		aspect: float64(width) / float64(height),
	}
}

// GetRay returns the primary ray through the centre of pixel (i, j), where
// (0, 0) is the top-left pixel
func (c *Camera) GetRay(i, j int) core.Ray {
	x := (2*(float64(i)+0.5)/float64(c.width) - 1) * c.scale * c.aspect
	y := -(2*(float64(j)+0.5)/float64(c.height) - 1) * c.scale
	return core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(x, y, -1).Normalize())
}

// Project returns the pixel a world-space point falls in. ok is false for
// points behind the camera or outside the image.
func (c *Camera) Project(point core.Vec3) (i, j int, ok bool) {
	if point.Z >= 0 {
		return 0, 0, false
	}

	ndcX := point.X / -point.Z / (c.scale * c.aspect)
	ndcY := point.Y / -point.Z / c.scale

	i = int(math.Floor((ndcX + 1) * float64(c.width) / 2))
	j = int(math.Floor((1 - ndcY) * float64(c.height) / 2))
	if i < 0 || i >= c.width || j < 0 || j >= c.height {
		return 0, 0, false
	}
	return i, j, true
}
