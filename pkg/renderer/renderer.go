package renderer

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/integrator"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// Config contains configuration for frame rendering
type Config struct {
	NumWorkers  int          // Number of parallel workers (0 = use CPU count)
	RowsPerTask int          // Height of each row band (0 = one row)
	Logger      *slog.Logger // Optional; defaults to core.Logger()
}

// DefaultConfig renders one row per task on every CPU
func DefaultConfig() Config {
	return Config{
		NumWorkers:  0, // Auto-detect CPU count
		RowsPerTask: 1,
	}
}

// Renderer draws a scene into framebuffers. The scene is shared read-only by
// every worker, so it must not change while a render is running.
type Renderer struct {
	scene      *scene.Scene
	integrator integrator.Integrator
	config     Config
	workerPool *WorkerPool
	logger     *slog.Logger
}

// NewRenderer creates a renderer for the scene
func NewRenderer(s *scene.Scene, config Config) *Renderer {
	if config.RowsPerTask <= 0 {
		config.RowsPerTask = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = core.Logger()
	}

	return &Renderer{
		scene:      s,
		integrator: integrator.New(s.Config),
		config:     config,
		workerPool: NewWorkerPool(config.NumWorkers),
		logger:     logger,
	}
}

// Render draws a frame of shapes lit by lights into fb with the default
// configuration. Zero lights is valid.
func Render(fb *Framebuffer, shapes []geometry.Shape, lightList []lights.PointLight) RenderStats {
	s := scene.New(shapes, lightList)
	s.Config.Width = fb.Width()
	s.Config.Height = fb.Height()
	return NewRenderer(s, DefaultConfig()).Render(fb)
}

// Render traces one primary ray per pixel and fills the whole framebuffer.
// It returns after every band is written.
func (r *Renderer) Render(fb *Framebuffer) RenderStats {
	stats, _ := r.RenderProgressive(context.Background(), fb, nil)
	return stats
}

// BandResult describes a finished row band
type BandResult struct {
	Bounds     image.Rectangle // Pixel rows written by this band
	BandNumber int             // 1-based completion order
	TotalBands int
	Rays       integrator.TraceStats
}

// RenderProgressive renders like Render but reports each band as it
// completes. callback runs on the calling goroutine, one band at a time, and
// may read the band's pixels from fb. When ctx is cancelled, bands that have
// not started are skipped and ctx.Err() is returned; the framebuffer then
// holds a partial frame.
func (r *Renderer) RenderProgressive(ctx context.Context, fb *Framebuffer, callback func(BandResult)) (RenderStats, error) {
	startTime := time.Now()
	camera := NewCamera(fb.Width(), fb.Height(), r.scene.Config.FOV)
	bands := NewBandGrid(fb.Width(), fb.Height(), r.config.RowsPerTask)

	r.logger.Debug("render started",
		"width", fb.Width(), "height", fb.Height(),
		"bands", len(bands), "workers", r.workerPool.GetNumWorkers(),
		"shading", r.scene.Config.Shading.String())

	// Each band owns its stats slot and its rows of fb, so workers share nothing
	bandStats := make([]integrator.TraceStats, len(bands))
	tasks := make([]Task, len(bands))
	for i, bounds := range bands {
		tasks[i] = Task{
			TaskID: i,
			Run: func() {
				bandStats[i] = r.renderBand(camera, fb, bounds)
			},
		}
	}

	completed := 0
	err := r.workerPool.Execute(ctx, tasks, func(result TaskResult) {
		if result.Skipped {
			return
		}
		completed++
		if callback != nil {
			callback(BandResult{
				Bounds:     bands[result.TaskID],
				BandNumber: completed,
				TotalBands: len(bands),
				Rays:       bandStats[result.TaskID],
			})
		}
	})

	stats := RenderStats{
		TotalPixels:    fb.Width() * fb.Height(),
		TotalBands:     len(bands),
		CompletedBands: completed,
		NumWorkers:     r.workerPool.GetNumWorkers(),
	}
	for _, bs := range bandStats {
		stats.Rays.Merge(bs)
	}
	stats.Elapsed = time.Since(startTime)

	if err != nil {
		r.logger.Info("render cancelled", "completed_bands", completed, "total_bands", len(bands))
		return stats, err
	}

	stats.AverageLuminance = CalculateAverageLuminance(fb)
	r.logger.Info("render complete",
		"elapsed", stats.Elapsed, "rays", stats.Rays.Total(),
		"rays_per_second", int64(stats.RaysPerSecond()))
	return stats, nil
}

// renderBand writes every pixel in bounds, row-major
func (r *Renderer) renderBand(camera *Camera, fb *Framebuffer, bounds image.Rectangle) integrator.TraceStats {
	var stats integrator.TraceStats
	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			color := r.integrator.RayColor(camera.GetRay(i, j), r.scene, &stats)
			fb.Set(i, j, core.ToRGBA(color))
		}
	}
	return stats
}

// NewBandGrid splits an image into full-width bands of rowsPerBand rows; the
// last band may be shorter
func NewBandGrid(width, height, rowsPerBand int) []image.Rectangle {
	if rowsPerBand <= 0 {
		rowsPerBand = 1
	}

	bands := make([]image.Rectangle, 0, (height+rowsPerBand-1)/rowsPerBand)
	for y0 := 0; y0 < height; y0 += rowsPerBand {
		y1 := min(y0+rowsPerBand, height) // Don't exceed image bounds
		bands = append(bands, image.Rect(0, y0, width, y1))
	}
	return bands
}
