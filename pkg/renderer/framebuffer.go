package renderer

import (
	"fmt"
	"image"
	"image/color"
)

// Framebuffer is a width×height grid of 8-bit RGBA pixels in row-major order
// with the origin at the top-left. It implements image.Image.
type Framebuffer struct {
	width, height int
	pix           []color.RGBA
}

// NewFramebuffer allocates a black, opaque framebuffer
func NewFramebuffer(width, height int) *Framebuffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("renderer: invalid framebuffer size %dx%d", width, height))
	}
	pix := make([]color.RGBA, width*height)
	for i := range pix {
		pix[i].A = 255
	}
	return &Framebuffer{width: width, height: height, pix: pix}
}

// Width returns the framebuffer width in pixels
func (fb *Framebuffer) Width() int { return fb.width }

// Height returns the framebuffer height in pixels
func (fb *Framebuffer) Height() int { return fb.height }

func (fb *Framebuffer) index(x, y int) int {
	if x < 0 || x >= fb.width || y < 0 || y >= fb.height {
		panic(fmt.Sprintf("renderer: pixel (%d, %d) outside %dx%d framebuffer", x, y, fb.width, fb.height))
	}
	return y*fb.width + x
}

// Set writes pixel (x, y). Writing outside the framebuffer panics.
func (fb *Framebuffer) Set(x, y int, c color.RGBA) {
	fb.pix[fb.index(x, y)] = c
}

// RGBAAt reads pixel (x, y). Reading outside the framebuffer panics.
func (fb *Framebuffer) RGBAAt(x, y int) color.RGBA {
	return fb.pix[fb.index(x, y)]
}

// ColorModel implements image.Image
func (fb *Framebuffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image
func (fb *Framebuffer) Bounds() image.Rectangle { return image.Rect(0, 0, fb.width, fb.height) }

// At implements image.Image. Points outside the bounds are transparent.
func (fb *Framebuffer) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(fb.Bounds())) {
		return color.RGBA{}
	}
	return fb.pix[y*fb.width+x]
}

// SubImage copies the pixels inside r into a new image with the same bounds
func (fb *Framebuffer) SubImage(r image.Rectangle) *image.RGBA {
	r = r.Intersect(fb.Bounds())
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, fb.pix[y*fb.width+x])
		}
	}
	return img
}

// RGBA copies the whole framebuffer into an *image.RGBA
func (fb *Framebuffer) RGBA() *image.RGBA {
	return fb.SubImage(fb.Bounds())
}

// FillRect paints c into the part of rect that lies inside the framebuffer.
// Column ranges are spread across the pool; a nil pool fills serially.
func (fb *Framebuffer) FillRect(rect image.Rectangle, c color.RGBA, pool *WorkerPool) {
	rect = rect.Intersect(fb.Bounds())
	if rect.Empty() {
		return
	}

	fill := func(x0, x1 int) {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			row := fb.pix[y*fb.width : (y+1)*fb.width]
			for x := x0; x < x1; x++ {
				row[x] = c
			}
		}
	}

	if pool == nil {
		fill(rect.Min.X, rect.Max.X)
		return
	}

	numTasks := min(pool.GetNumWorkers(), rect.Dx())
	tasks := make([]Task, 0, numTasks)
	for i := 0; i < numTasks; i++ {
		x0 := rect.Min.X + i*rect.Dx()/numTasks
		x1 := rect.Min.X + (i+1)*rect.Dx()/numTasks
		tasks = append(tasks, Task{TaskID: i, Run: func() { fill(x0, x1) }})
	}
	pool.Run(tasks)
}
