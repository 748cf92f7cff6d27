package renderer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

var skyColor = core.ToRGBA(core.NewVec3(0.2, 0.7, 0.8))

func renderScene(s *scene.Scene, width, height int, config Config) *Framebuffer {
	fb := NewFramebuffer(width, height)
	NewRenderer(s, config).Render(fb)
	return fb
}

func TestRender_Idempotent(t *testing.T) {
	s := scene.NewDefaultScene()
	fb := NewFramebuffer(80, 60)
	r := NewRenderer(s, Config{NumWorkers: 4, RowsPerTask: 1})

	r.Render(fb)
	first := fb.RGBA()
	r.Render(fb)
	if !bytes.Equal(first.Pix, fb.RGBA().Pix) {
		t.Fatal("Second render into the same framebuffer differs")
	}

	// Every pixel is rewritten, so earlier contents never show through
	configs := []Config{
		{NumWorkers: 1, RowsPerTask: 60},
		{NumWorkers: 7, RowsPerTask: 9},
	}
	for _, config := range configs {
		fb.FillRect(fb.Bounds(), color.RGBA{R: 255, B: 255, A: 255}, nil)
		NewRenderer(s, config).Render(fb)
		if !bytes.Equal(first.Pix, fb.RGBA().Pix) {
			t.Errorf("Frame differs with config %+v", config)
		}
	}
}

func TestRender_FlatSphere(t *testing.T) {
	const width, height = 800, 600
	sphereColor := color.RGBA{R: 100, G: 100, B: 80, A: 255}
	center := core.NewVec3(-3, 0, -16)

	s := scene.New([]geometry.Shape{
		geometry.NewSphere(center, 2, material.FlatColor(100, 100, 80)),
	}, nil)
	s.Config.Shading = scene.ShadingFlat

	fb := renderScene(s, width, height, DefaultConfig())

	i, j, ok := NewCamera(width, height, s.Config.FOV).Project(center)
	if !ok {
		t.Fatal("Sphere centre should be in view")
	}
	if got := fb.RGBAAt(i, j); got != sphereColor {
		t.Errorf("Pixel (%d,%d) at sphere centre = %v, want %v", i, j, got, sphereColor)
	}
	if got := fb.RGBAAt(0, 0); got != skyColor {
		t.Errorf("Top-left pixel = %v, want background %v", got, skyColor)
	}
	if got := fb.RGBAAt(width/2, height/2); got != skyColor {
		t.Errorf("Image centre misses the sphere and should be background, got %v", got)
	}
}

func TestRender_PackageLevel(t *testing.T) {
	fb := NewFramebuffer(64, 48)
	stats := Render(fb, []geometry.Shape{
		geometry.NewSphere(core.NewVec3(0, 0, -10), 3, material.FlatColor(255, 255, 255)),
	}, nil)

	// No lights: the diffuse-only sphere is black, the rest is sky
	if got := fb.RGBAAt(32, 24); got != (color.RGBA{A: 255}) {
		t.Errorf("Unlit sphere should be black, got %v", got)
	}
	if got := fb.RGBAAt(0, 0); got != skyColor {
		t.Errorf("Corner should be background, got %v", got)
	}
	if stats.TotalPixels != 64*48 {
		t.Errorf("TotalPixels = %d", stats.TotalPixels)
	}
	if stats.Rays.PrimaryRays != 64*48 {
		t.Errorf("Expected one primary ray per pixel, got %d", stats.Rays.PrimaryRays)
	}
}

func TestRender_NearestSphereWins(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	// The far sphere is listed first and is larger, so it surrounds the near one
	s := scene.New([]geometry.Shape{
		geometry.NewSphere(core.NewVec3(0, 0, -12), 3, material.FlatColor(0, 0, 255)),
		geometry.NewSphere(core.NewVec3(0, 0, -10), 2, material.FlatColor(255, 0, 0)),
	}, nil)
	s.Config.Shading = scene.ShadingFlat

	fb := renderScene(s, 401, 401, Config{NumWorkers: 3, RowsPerTask: 16})
	camera := NewCamera(401, 401, s.Config.FOV)

	if got := fb.RGBAAt(200, 200); got != red {
		t.Errorf("Centre pixel = %v, want near sphere %v", got, red)
	}

	// About 13° off axis: outside the near sphere, inside the far one
	i, j, ok := camera.Project(core.NewVec3(2.77, 0, -12))
	if !ok {
		t.Fatal("Expected point in view")
	}
	if got := fb.RGBAAt(i, j); got != blue {
		t.Errorf("Pixel (%d,%d) = %v, want far sphere %v", i, j, got, blue)
	}
}

func TestRenderProgressive_Bands(t *testing.T) {
	s := scene.NewSpheresScene()
	fb := NewFramebuffer(40, 30)
	r := NewRenderer(s, Config{NumWorkers: 4, RowsPerTask: 7})

	covered := image.Rectangle{}
	numbers := make(map[int]bool)
	stats, err := r.RenderProgressive(context.Background(), fb, func(band BandResult) {
		covered = covered.Union(band.Bounds)
		numbers[band.BandNumber] = true
		if band.TotalBands != 5 {
			t.Errorf("Expected 5 bands, got %d", band.TotalBands)
		}
		if band.Rays.PrimaryRays != int64(band.Bounds.Dx()*band.Bounds.Dy()) {
			t.Errorf("Band %v traced %d primary rays", band.Bounds, band.Rays.PrimaryRays)
		}
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if covered != fb.Bounds() {
		t.Errorf("Bands covered %v, want %v", covered, fb.Bounds())
	}
	for n := 1; n <= 5; n++ {
		if !numbers[n] {
			t.Errorf("Missing band number %d", n)
		}
	}
	if stats.CompletedBands != 5 || stats.TotalBands != 5 {
		t.Errorf("Unexpected band counts %+v", stats)
	}
	if stats.Rays.PrimaryRays != 40*30 || stats.Rays.ShadowRays == 0 {
		t.Errorf("Unexpected ray counts %+v", stats.Rays)
	}
	if stats.AverageLuminance <= 0 {
		t.Error("Expected non-zero average luminance")
	}
}

func TestRenderProgressive_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fb := NewFramebuffer(20, 20)
	calls := 0
	stats, err := NewRenderer(scene.NewDefaultScene(), DefaultConfig()).
		RenderProgressive(ctx, fb, func(BandResult) { calls++ })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 0 || stats.CompletedBands != 0 {
		t.Errorf("Expected no completed bands, got %d callbacks and %+v", calls, stats)
	}
}

func TestNewBandGrid(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		rows          int
		expected      []image.Rectangle
	}{
		{"exact", 4, 6, 3, []image.Rectangle{image.Rect(0, 0, 4, 3), image.Rect(0, 3, 4, 6)}},
		{"remainder", 4, 5, 2, []image.Rectangle{image.Rect(0, 0, 4, 2), image.Rect(0, 2, 4, 4), image.Rect(0, 4, 4, 5)}},
		{"zero rows means one", 2, 2, 0, []image.Rectangle{image.Rect(0, 0, 2, 1), image.Rect(0, 1, 2, 2)}},
		{"taller than image", 3, 2, 10, []image.Rectangle{image.Rect(0, 0, 3, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bands := NewBandGrid(tt.width, tt.height, tt.rows)
			if len(bands) != len(tt.expected) {
				t.Fatalf("Expected %d bands, got %d", len(tt.expected), len(bands))
			}
			for i := range bands {
				if bands[i] != tt.expected[i] {
					t.Errorf("Band %d = %v, want %v", i, bands[i], tt.expected[i])
				}
			}
		})
	}
}
