package renderer

import (
	"image"
	"image/color"
	"testing"
)

func TestFramebuffer_New(t *testing.T) {
	fb := NewFramebuffer(4, 3)

	if fb.Width() != 4 || fb.Height() != 3 {
		t.Errorf("Expected 4x3, got %dx%d", fb.Width(), fb.Height())
	}
	if fb.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("Unexpected bounds %v", fb.Bounds())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if c := fb.RGBAAt(x, y); c != (color.RGBA{A: 255}) {
				t.Fatalf("Expected opaque black at (%d,%d), got %v", x, y, c)
			}
		}
	}
}

func TestFramebuffer_SetAndAt(t *testing.T) {
	fb := NewFramebuffer(4, 3)
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	fb.Set(3, 2, c)

	if got := fb.RGBAAt(3, 2); got != c {
		t.Errorf("RGBAAt = %v, want %v", got, c)
	}
	if got := fb.At(3, 2); got != c {
		t.Errorf("At = %v, want %v", got, c)
	}
	if got := fb.At(4, 0); got != (color.RGBA{}) {
		t.Errorf("At outside bounds should be transparent, got %v", got)
	}
}

func TestFramebuffer_OutOfRangePanics(t *testing.T) {
	fb := NewFramebuffer(4, 3)

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 0},
		{"negative y", 0, -1},
		{"x at width", 4, 0},
		{"y at height", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic writing (%d, %d)", tt.x, tt.y)
				}
			}()
			fb.Set(tt.x, tt.y, color.RGBA{})
		})
	}
}

func TestFramebuffer_InvalidSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero-sized framebuffer")
		}
	}()
	NewFramebuffer(0, 10)
}

func TestFramebuffer_FillRect(t *testing.T) {
	fill := color.RGBA{R: 200, G: 100, B: 50, A: 255}

	tests := []struct {
		name string
		rect image.Rectangle
		pool *WorkerPool
		want image.Rectangle
	}{
		{"serial", image.Rect(2, 1, 7, 4), nil, image.Rect(2, 1, 7, 4)},
		{"parallel", image.Rect(2, 1, 7, 4), NewWorkerPool(3), image.Rect(2, 1, 7, 4)},
		{"more workers than columns", image.Rect(0, 0, 2, 5), NewWorkerPool(16), image.Rect(0, 0, 2, 5)},
		{"clipped", image.Rect(-5, -5, 3, 3), NewWorkerPool(2), image.Rect(0, 0, 3, 3)},
		{"outside", image.Rect(20, 20, 30, 30), NewWorkerPool(2), image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := NewFramebuffer(10, 6)
			fb.FillRect(tt.rect, fill, tt.pool)

			for y := 0; y < fb.Height(); y++ {
				for x := 0; x < fb.Width(); x++ {
					want := color.RGBA{A: 255}
					if (image.Point{X: x, Y: y}).In(tt.want) {
						want = fill
					}
					if got := fb.RGBAAt(x, y); got != want {
						t.Fatalf("Pixel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestFramebuffer_SubImage(t *testing.T) {
	fb := NewFramebuffer(5, 5)
	fb.Set(2, 3, color.RGBA{R: 255, A: 255})

	sub := fb.SubImage(image.Rect(0, 3, 5, 5))
	if sub.Bounds() != image.Rect(0, 3, 5, 5) {
		t.Errorf("Unexpected bounds %v", sub.Bounds())
	}
	if got := sub.RGBAAt(2, 3); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("SubImage pixel = %v", got)
	}

	full := fb.RGBA()
	if full.Bounds() != fb.Bounds() {
		t.Errorf("RGBA() bounds = %v", full.Bounds())
	}
}
