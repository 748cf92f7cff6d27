package renderer

import (
	"image"
	"time"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/integrator"
)

// RenderStats contains statistics about a finished render
type RenderStats struct {
	TotalPixels      int                   // Pixels written
	TotalBands       int                   // Row bands rendered
	CompletedBands   int                   // Bands finished before cancellation
	NumWorkers       int                   // Parallel workers used
	Rays             integrator.TraceStats // Rays traced, merged across bands
	Elapsed          time.Duration
	AverageLuminance float64 // Mean Rec. 709 luminance of the output, 0..1
}

// RaysPerSecond returns the ray throughput of the render
func (s RenderStats) RaysPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Rays.Total()) / s.Elapsed.Seconds()
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of an image
// with channels normalized to 0..1
func CalculateAverageLuminance(img image.Image) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}

	var total float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			total += core.NewVec3(float64(r), float64(g), float64(b)).Multiply(1.0 / 0xffff).Luminance()
		}
	}
	return total / float64(pixels)
}
