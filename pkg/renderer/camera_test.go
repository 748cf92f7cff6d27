package renderer

import (
	"math"
	"testing"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

func TestCameraGetRay_Center(t *testing.T) {
	// Odd dimensions put a pixel centre exactly on the optical axis
	camera := NewCamera(101, 51, math.Pi/2)
	ray := camera.GetRay(50, 25)

	if ray.Origin != (core.Vec3{}) {
		t.Errorf("Expected origin at zero, got %v", ray.Origin)
	}
	expected := core.NewVec3(0, 0, -1)
	if math.Abs(ray.Direction.Subtract(expected).Length()) > 1e-12 {
		t.Errorf("Expected direction %v, got %v", expected, ray.Direction)
	}
}

func TestCameraGetRay_Corners(t *testing.T) {
	width, height := 800, 600
	camera := NewCamera(width, height, math.Pi/2)

	topLeft := camera.GetRay(0, 0).Direction
	bottomRight := camera.GetRay(width-1, height-1).Direction

	if topLeft.X >= 0 || topLeft.Y <= 0 {
		t.Errorf("Top-left ray should point left and up, got %v", topLeft)
	}
	if math.Abs(topLeft.X+bottomRight.X) > 1e-12 || math.Abs(topLeft.Y+bottomRight.Y) > 1e-12 {
		t.Errorf("Opposite corners should be symmetric: %v vs %v", topLeft, bottomRight)
	}
	if math.Abs(topLeft.Length()-1) > 1e-12 {
		t.Errorf("Expected unit direction, got length %f", topLeft.Length())
	}

	// With tan(45°) = 1 the unnormalized x extent is the aspect ratio
	x := topLeft.X / -topLeft.Z
	expectedX := -(1 - 1.0/float64(width)) * float64(width) / float64(height)
	if math.Abs(x-expectedX) > 1e-12 {
		t.Errorf("Expected x %f, got %f", expectedX, x)
	}
}

func TestCameraProject(t *testing.T) {
	camera := NewCamera(800, 600, math.Pi/2)

	pixels := [][2]int{{0, 0}, {799, 599}, {400, 300}, {123, 456}, {799, 0}}
	for _, p := range pixels {
		point := camera.GetRay(p[0], p[1]).At(10)
		i, j, ok := camera.Project(point)
		if !ok || i != p[0] || j != p[1] {
			t.Errorf("Project(GetRay(%d,%d)) = (%d,%d,%t)", p[0], p[1], i, j, ok)
		}
	}

	if _, _, ok := camera.Project(core.NewVec3(0, 0, 5)); ok {
		t.Error("Point behind the camera should not project")
	}
	if _, _, ok := camera.Project(core.NewVec3(100, 0, -1)); ok {
		t.Error("Point outside the view should not project")
	}
}

func TestCameraProject_SphereCenter(t *testing.T) {
	camera := NewCamera(800, 600, math.Pi/2)
	i, j, ok := camera.Project(core.NewVec3(-3, 0, -16))
	if !ok || i != 343 || j != 300 {
		t.Errorf("Expected (343, 300), got (%d, %d, %t)", i, j, ok)
	}
}
