package scene

import (
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// defaultSpheres returns the four-sphere arrangement shared by the lit scenes
func defaultSpheres() []geometry.Shape {
	return []geometry.Shape{
		geometry.NewSphere(core.NewVec3(-3, 0, -16), 2, material.Ivory),
		geometry.NewSphere(core.NewVec3(-1.0, -1.5, -12), 2, material.Glass),
		geometry.NewSphere(core.NewVec3(1.5, -0.5, -18), 3, material.RedRubber),
		geometry.NewSphere(core.NewVec3(7, 5, -18), 4, material.Mirror),
	}
}

func defaultLights() []lights.PointLight {
	return []lights.PointLight{
		lights.NewPointLight(core.NewVec3(-20, 20, 20), 1.5),
		lights.NewPointLight(core.NewVec3(30, 50, -25), 1.8),
		lights.NewPointLight(core.NewVec3(30, 20, 30), 1.7),
	}
}

// NewDefaultScene creates ivory, glass, rubber and mirror spheres over a
// checkerboard floor, lit by three point lights
func NewDefaultScene() *Scene {
	s := New(defaultSpheres(), defaultLights())
	s.Shapes = append(s.Shapes, geometry.NewCheckerboardPlane())
	return s
}

// NewSpheresScene creates the default scene without the checkerboard floor
func NewSpheresScene() *Scene {
	return New(defaultSpheres(), defaultLights())
}

// NewFlatScene creates unlit flat-colored spheres with no lights
func NewFlatScene() *Scene {
	ivory := material.FlatColor(110, 110, 80)
	redRubber := material.FlatColor(80, 30, 30)

	s := New([]geometry.Shape{
		geometry.NewSphere(core.NewVec3(-3, 0, -16), 2, ivory),
		geometry.NewSphere(core.NewVec3(-1.0, -1.5, -12), 2, redRubber),
		geometry.NewSphere(core.NewVec3(1.5, -0.5, -18), 3, redRubber),
		geometry.NewSphere(core.NewVec3(7, 5, -18), 4, ivory),
	}, nil)
	s.Config.Shading = ShadingFlat
	return s
}

// NewMirrorScene creates a single perfect mirror in front of the camera,
// reflecting only the background
func NewMirrorScene() *Scene {
	mirror := material.NewMaterial(1.0, core.NewVec4(0, 0, 0.9, 0), core.NewVec3(1, 1, 1), 0)
	s := New([]geometry.Shape{
		geometry.NewSphere(core.NewVec3(0, 0, -8), 4, mirror),
	}, []lights.PointLight{
		lights.NewPointLight(core.NewVec3(-10, 10, 10), 1.5),
	})
	return s
}
