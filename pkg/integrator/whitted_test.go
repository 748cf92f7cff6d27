package integrator

import (
	"image/color"
	"math"
	"testing"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

const tolerance = 1e-9

func vecClose(a, b core.Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

// diffuseOnly is a material that responds only to direct diffuse light
func diffuseOnly(c core.Vec3) *material.Material {
	return material.NewMaterial(1.0, core.NewVec4(1, 0, 0, 0), c, 10)
}

var forward = core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

func TestReflect(t *testing.T) {
	tests := []struct {
		name string
		d, n core.Vec3
	}{
		{"head on", core.NewVec3(0, 0, -1), core.NewVec3(0, 0, 1)},
		{"oblique", core.NewVec3(1, -1, 0).Normalize(), core.NewVec3(0, 1, 0)},
		{"skewed", core.NewVec3(0.3, -0.5, -0.8).Normalize(), core.NewVec3(0.2, 0.9, 0.1).Normalize()},
		{"same side", core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reflect(tt.d, tt.n)
			if math.Abs(r.Dot(tt.n)+tt.d.Dot(tt.n)) > tolerance {
				t.Errorf("reflect(d,n)·n = %f, want %f", r.Dot(tt.n), -tt.d.Dot(tt.n))
			}
			if math.Abs(r.Length()-1) > tolerance {
				t.Errorf("Expected unit reflection, got length %f", r.Length())
			}
		})
	}
}

func TestRefract(t *testing.T) {
	normal := core.NewVec3(0, 1, 0)

	t.Run("normal incidence passes straight", func(t *testing.T) {
		d := core.NewVec3(0, -1, 0)
		got := Refract(d, normal, 1.5).Normalize()
		if !vecClose(got, d, tolerance) {
			t.Errorf("Expected %v, got %v", d, got)
		}
	})

	t.Run("entering obeys snell", func(t *testing.T) {
		d := core.NewVec3(1, -1, 0).Normalize()
		got := Refract(d, normal, 1.5).Normalize()
		sinI := math.Sqrt(0.5)
		sinT := math.Abs(got.X)
		if math.Abs(sinI-1.5*sinT) > 1e-9 {
			t.Errorf("sin(i)=%f should equal 1.5*sin(t)=%f", sinI, 1.5*sinT)
		}
		if got.Y >= 0 {
			t.Errorf("Refracted ray should continue into the surface, got %v", got)
		}
	})

	t.Run("exiting bends away from normal", func(t *testing.T) {
		d := core.NewVec3(0.3, 1, 0).Normalize()
		got := Refract(d, normal, 1.5).Normalize()
		if got.X <= d.X {
			t.Errorf("Expected ray to bend away from the normal, got %v from %v", got, d)
		}
		if got.Y <= 0 {
			t.Errorf("Exiting ray should continue outward, got %v", got)
		}
	})

	t.Run("total internal reflection", func(t *testing.T) {
		d := core.NewVec3(1, 0.1, 0).Normalize()
		if got := Refract(d, normal, 1.5); !got.IsZero() {
			t.Errorf("Expected zero vector for total internal reflection, got %v", got)
		}
	})

	t.Run("matched index", func(t *testing.T) {
		d := core.NewVec3(0.4, -0.6, 0.2).Normalize()
		got := Refract(d, normal, 1.0).Normalize()
		if !vecClose(got, d, tolerance) {
			t.Errorf("Expected unchanged direction %v, got %v", d, got)
		}
	})
}

func TestOffsetOrigin(t *testing.T) {
	p := core.NewVec3(0, 0, 0)
	n := core.NewVec3(0, 1, 0)

	if got := offsetOrigin(p, core.NewVec3(0, 1, 0), n); got != core.NewVec3(0, Bias, 0) {
		t.Errorf("Outgoing ray should start above the surface, got %v", got)
	}
	if got := offsetOrigin(p, core.NewVec3(0, -1, 0), n); got != core.NewVec3(0, -Bias, 0) {
		t.Errorf("Transmitted ray should start below the surface, got %v", got)
	}
}

func TestCastRay_Miss(t *testing.T) {
	s := scene.New(nil, nil)
	w := NewWhittedIntegrator(s.Config)

	got := w.CastRay(forward, s, 0, nil)
	if got != core.NewVec3(0.2, 0.7, 0.8) {
		t.Errorf("Expected background, got %v", got)
	}
}

func TestCastRay_DepthTermination(t *testing.T) {
	s := scene.NewDefaultScene()
	w := NewWhittedIntegrator(s.Config)

	// The glass sphere is straight ahead, but at the depth limit only the
	// background is visible
	var stats TraceStats
	got := w.CastRay(forward, s, s.Config.MaxDepth, &stats)
	if got != s.BackgroundColor(forward.Direction) {
		t.Errorf("Expected background at max depth, got %v", got)
	}
	if stats.Total() != 0 {
		t.Errorf("Expected no rays traced at max depth, got %+v", stats)
	}

	stats = TraceStats{}
	if got := w.CastRay(forward, s, s.Config.MaxDepth-1, &stats); got == s.BackgroundColor(forward.Direction) {
		t.Error("Expected a surface color one level above the limit")
	}
	if stats.SecondaryRays != 1 {
		t.Errorf("Expected exactly one traced ray below the limit, got %+v", stats)
	}
}

func TestCastRay_RecursionBounded(t *testing.T) {
	// Camera inside a mirror sphere: every reflection hits the sphere again
	mirror := material.NewMaterial(1, core.NewVec4(0, 0, 1, 0), core.NewVec3(1, 1, 1), 0)
	s := scene.New([]geometry.Shape{geometry.NewSphere(core.NewVec3(0, 0, 0), 5, mirror)}, nil)
	w := NewWhittedIntegrator(s.Config)

	var stats TraceStats
	got := w.CastRay(forward, s, 0, &stats)
	if got != s.BackgroundColor(forward.Direction) {
		t.Errorf("Expected background after perfect reflections, got %v", got)
	}
	if stats.PrimaryRays != 1 || stats.SecondaryRays != int64(s.Config.MaxDepth-1) {
		t.Errorf("Expected 1 primary and %d secondary rays, got %+v", s.Config.MaxDepth-1, stats)
	}
}

func TestCastRay_Shadow(t *testing.T) {
	surface := core.NewVec3(0.4, 0.5, 0.6)
	target := geometry.NewSphere(core.NewVec3(0, 0, -5), 1, diffuseOnly(surface))
	light := lights.NewPointLight(core.NewVec3(0, 0, 10), 1)

	tests := []struct {
		name     string
		shapes   []geometry.Shape
		expected core.Vec3
	}{
		{
			name:     "lit",
			shapes:   []geometry.Shape{target},
			expected: surface,
		},
		{
			name: "occluded",
			shapes: []geometry.Shape{
				target,
				geometry.NewSphere(core.NewVec3(0, 0, 3), 0.5, nil),
			},
			expected: core.Vec3{},
		},
		{
			name: "occluder beyond the light",
			shapes: []geometry.Shape{
				target,
				geometry.NewSphere(core.NewVec3(0, 0, 20), 0.5, nil),
			},
			expected: surface,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scene.New(tt.shapes, []lights.PointLight{light})
			w := NewWhittedIntegrator(s.Config)

			got := w.CastRay(forward, s, 0, nil)
			if !vecClose(got, tt.expected, 1e-6) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCastRay_NoLights(t *testing.T) {
	s := scene.New([]geometry.Shape{
		geometry.NewSphere(core.NewVec3(0, 0, -5), 1, diffuseOnly(core.NewVec3(1, 1, 1))),
	}, nil)
	w := NewWhittedIntegrator(s.Config)

	if got := w.CastRay(forward, s, 0, nil); got != (core.Vec3{}) {
		t.Errorf("Expected black without lights, got %v", got)
	}
}

func TestCastRay_MirrorAttenuatesBackground(t *testing.T) {
	s := scene.NewMirrorScene()
	w := NewWhittedIntegrator(s.Config)

	expected := s.BackgroundColor(forward.Direction).Multiply(0.9)
	if got := w.CastRay(forward, s, 0, nil); !vecClose(got, expected, tolerance) {
		t.Errorf("Expected background attenuated by 0.9 = %v, got %v", expected, got)
	}
}

func TestCastRay_MirrorReflectsEnvironmentMap(t *testing.T) {
	const width, height = 8, 4
	pixels := make([]core.Vec3, width*height)
	for i := range pixels {
		pixels[i] = core.NewVec3(float64(i%width)/width, float64(i/width)/height, 0.5+float64(i)/64)
	}
	env := scene.NewEnvironmentMap(width, height, pixels)

	mirror := material.NewMaterial(1.0, core.NewVec4(0, 0, 0.7, 0), core.NewVec3(1, 1, 1), 0)
	sphere := geometry.NewSphere(core.NewVec3(0, 0, -8), 4, mirror)
	s := scene.New([]geometry.Shape{sphere}, nil)
	s.Background = env
	w := NewWhittedIntegrator(s.Config)

	tests := []struct {
		name string
		dir  core.Vec3
	}{
		{"head on", core.NewVec3(0, 0, -1)},
		{"up and right", core.NewVec3(0.3, 0.2, -1)},
		{"down and left", core.NewVec3(-0.25, -0.3, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(core.Vec3{}, tt.dir.Normalize())
			hit, ok := sphere.Hit(ray, scene.FarPlane)
			if !ok {
				t.Fatal("Expected the ray to hit the mirror")
			}

			reflected := Reflect(ray.Direction, hit.Normal).Normalize()
			expected := env.Color(reflected).Multiply(0.7)
			got := w.CastRay(ray, s, 0, nil)
			if !vecClose(got, expected, tolerance) {
				t.Errorf("Expected reflected environment %v, got %v", expected, got)
			}
			if unreflected := env.Color(ray.Direction).Multiply(0.7); vecClose(got, unreflected, tolerance) {
				t.Errorf("Mirror returned the environment along the incoming ray %v", unreflected)
			}
		})
	}
}

func TestCastRay_IndexMatchedSphereIsInvisible(t *testing.T) {
	matched := material.NewMaterial(1.0, core.NewVec4(0, 0, 0, 1), core.NewVec3(1, 0, 0), 50)
	s := scene.New([]geometry.Shape{geometry.NewSphere(core.NewVec3(0, 0, -8), 4, matched)}, nil)
	w := NewWhittedIntegrator(s.Config)

	var stats TraceStats
	got := w.CastRay(forward, s, 0, &stats)
	if !vecClose(got, s.BackgroundColor(forward.Direction), tolerance) {
		t.Errorf("Expected background through matched sphere, got %v", got)
	}
	if stats.SecondaryRays != 2 {
		t.Errorf("Expected refraction in and out of the sphere, got %+v", stats)
	}
}

func TestCastRay_Deterministic(t *testing.T) {
	s := scene.NewDefaultScene()
	w := NewWhittedIntegrator(s.Config)
	ray := core.NewRay(core.Vec3{}, core.NewVec3(-0.1, -0.05, -1).Normalize())

	first := w.CastRay(ray, s, 0, nil)
	for i := 0; i < 5; i++ {
		if got := w.CastRay(ray, s, 0, nil); got != first {
			t.Fatalf("Run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestNew_SelectsShading(t *testing.T) {
	cfg := scene.DefaultConfig()
	if _, ok := New(cfg).(*WhittedIntegrator); !ok {
		t.Error("Expected Whitted integrator by default")
	}
	cfg.Shading = scene.ShadingFlat
	if _, ok := New(cfg).(*FlatIntegrator); !ok {
		t.Error("Expected flat integrator for flat shading")
	}
}

func TestFlatIntegrator(t *testing.T) {
	s := scene.NewFlatScene()
	f := NewFlatIntegrator()

	var stats TraceStats
	// Straight up misses every sphere
	up := core.NewRay(core.Vec3{}, core.NewVec3(0, 1, 0))
	if got := f.RayColor(up, s, &stats); got != s.BackgroundColor(up.Direction) {
		t.Errorf("Expected background, got %v", got)
	}

	// Upper half of the ivory sphere, clear of the red one in front of it
	toIvory := core.NewRay(core.Vec3{}, core.NewVec3(-3, 1.5, -16).Normalize())
	expected := color.RGBA{R: 110, G: 110, B: 80, A: 255}
	if got := f.RayColor(toIvory, s, &stats); core.ToRGBA(got) != expected {
		t.Errorf("Expected ivory flat color, got %v", got)
	}

	if stats.PrimaryRays != 2 || stats.SecondaryRays != 0 || stats.ShadowRays != 0 {
		t.Errorf("Flat shading should trace only primary rays, got %+v", stats)
	}
}

func TestTraceStats_Merge(t *testing.T) {
	a := TraceStats{PrimaryRays: 1, SecondaryRays: 2, ShadowRays: 3}
	a.Merge(TraceStats{PrimaryRays: 10, SecondaryRays: 20, ShadowRays: 30})
	if a != (TraceStats{PrimaryRays: 11, SecondaryRays: 22, ShadowRays: 33}) {
		t.Errorf("Unexpected merge result %+v", a)
	}
	if a.Total() != 66 {
		t.Errorf("Total() = %d, want 66", a.Total())
	}
}
