package scene

import (
	"fmt"
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
)

// FarPlane is the distance beyond which intersections are discarded
const FarPlane = 1000.0

// Shading selects how surface hits are colored
type Shading int

const (
	// ShadingWhitted computes lighting, shadows, reflection and refraction
	ShadingWhitted Shading = iota
	// ShadingFlat returns the diffuse color of the nearest surface unlit
	ShadingFlat
)

func (s Shading) String() string {
	switch s {
	case ShadingFlat:
		return "flat"
	default:
		return "whitted"
	}
}

// ParseShading converts a shading name into a Shading value
func ParseShading(name string) (Shading, error) {
	switch name {
	case "", "whitted":
		return ShadingWhitted, nil
	case "flat":
		return ShadingFlat, nil
	default:
		return ShadingWhitted, fmt.Errorf("unknown shading %q", name)
	}
}

// Config contains rendering configuration
type Config struct {
	Width    int     // Image width
	Height   int     // Image height
	MaxDepth int     // Rays at this recursion depth return the background
	FOV      float64 // Vertical field of view in radians
	Shading  Shading
}

// DefaultConfig returns the 800x600, 90 degree, depth 5 configuration
func DefaultConfig() Config {
	return Config{
		Width:    800,
		Height:   600,
		MaxDepth: 5,
		FOV:      math.Pi / 2,
		Shading:  ShadingWhitted,
	}
}

// Scene contains all the elements needed for rendering. A scene must not be
// modified while a render is in progress.
type Scene struct {
	Shapes     []geometry.Shape    // Intersected in insertion order
	Lights     []lights.PointLight // Evaluated in insertion order
	Background Background
	Config     Config
}

// New creates a scene with the default configuration and background
func New(shapes []geometry.Shape, lightList []lights.PointLight) *Scene {
	return &Scene{
		Shapes:     shapes,
		Lights:     lightList,
		Background: DefaultBackground,
		Config:     DefaultConfig(),
	}
}

// Intersect returns the nearest hit closer than FarPlane. Shapes are scanned
// in order and a later shape must be strictly closer to replace an earlier
// one.
func (s *Scene) Intersect(ray core.Ray) (*geometry.HitRecord, bool) {
	var closestHit *geometry.HitRecord
	closestSoFar := FarPlane

	for _, shape := range s.Shapes {
		if hit, isHit := shape.Hit(ray, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}

// BackgroundColor returns the background seen along a direction
func (s *Scene) BackgroundColor(direction core.Vec3) core.Vec3 {
	if s.Background == nil {
		return DefaultBackground.Color(direction)
	}
	return s.Background.Color(direction)
}

// AddSphere appends a sphere to the scene
func (s *Scene) AddSphere(sphere *geometry.Sphere) {
	s.Shapes = append(s.Shapes, sphere)
}

// AddLight appends a point light to the scene
func (s *Scene) AddLight(light lights.PointLight) {
	s.Lights = append(s.Lights, light)
}

// GetPrimitiveCount returns the number of shapes in the scene
func (s *Scene) GetPrimitiveCount() int {
	return len(s.Shapes)
}

// Validate reports configuration values that cannot be rendered
func (s *Scene) Validate() error {
	if s.Config.Width <= 0 || s.Config.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", s.Config.Width, s.Config.Height)
	}
	if s.Config.MaxDepth < 0 {
		return fmt.Errorf("max depth must be non-negative, got %d", s.Config.MaxDepth)
	}
	if s.Config.FOV <= 0 || s.Config.FOV >= math.Pi {
		return fmt.Errorf("field of view must be in (0, pi), got %f", s.Config.FOV)
	}
	for i, shape := range s.Shapes {
		if sphere, ok := shape.(*geometry.Sphere); ok && sphere.Radius <= 0 {
			return fmt.Errorf("sphere %d: radius must be positive, got %f", i, sphere.Radius)
		}
	}
	for i, light := range s.Lights {
		if light.Intensity < 0 {
			return fmt.Errorf("light %d: intensity must be non-negative, got %f", i, light.Intensity)
		}
	}
	return nil
}
