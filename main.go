package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/display"
	"github.com/df07/go-whitted-raytracer/pkg/framestore"
	"github.com/df07/go-whitted-raytracer/pkg/loaders"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, renders one frame and writes the requested outputs
func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	sceneType := flags.String("scene", "default", "Built-in scene name, scene file name in scenes/, or path to a .json scene")
	width := flags.Int("width", 0, "Image width (0 = scene default)")
	height := flags.Int("height", 0, "Image height (0 = scene default)")
	depth := flags.Int("depth", -1, "Maximum recursion depth (-1 = scene default)")
	workers := flags.Int("workers", 0, "Number of parallel workers (0 = all CPUs)")
	out := flags.String("out", "", "Output image; .png, .bmp or .tif selects the format (default output/<scene>/render_<timestamp>.png)")
	preview := flags.Bool("preview", false, "Also write an annotated preview sheet next to the output")
	archive := flags.String("archive", "", "Frame store directory to archive the raw frame in")
	codecName := flags.String("archive-codec", config.DefaultStoreCodec, "Frame store codec: zstd or snappy")
	logLevel := flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.SetOutput(stdout)
	flags.Usage = func() {
		fmt.Fprintln(stdout, "Whitted Raytracer")
		fmt.Fprintln(stdout, "Usage: raytracer [options]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		flags.PrintDefaults()
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Built-in scenes:")
		for _, info := range scene.BuiltinScenes() {
			fmt.Fprintf(stdout, "  %-10s %s\n", info.ID, info.Description)
		}
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	core.SetLogger(logger)
	defer core.SetLogger(nil)

	selectedScene, err := createScene(*sceneType)
	if err != nil {
		return err
	}
	if *width > 0 {
		selectedScene.Config.Width = *width
	}
	if *height > 0 {
		selectedScene.Config.Height = *height
	}
	if *depth >= 0 {
		selectedScene.Config.MaxDepth = *depth
	}
	if err := selectedScene.Validate(); err != nil {
		return fmt.Errorf("invalid scene %s: %w", *sceneType, err)
	}

	outPath := *out
	if outPath == "" {
		outputDir := createOutputDir(*sceneType)
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		timestamp := time.Now().Format("20060102_150405")
		outPath = filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))
	}
	if _, err := display.FormatFromPath(outPath); err != nil {
		return err
	}

	cfg := selectedScene.Config
	fmt.Fprintf(stdout, "Rendering %s at %dx%d (depth %d, %s shading)...\n",
		*sceneType, cfg.Width, cfg.Height, cfg.MaxDepth, cfg.Shading)

	pool := renderer.NewWorkerPool(*workers)
	r := renderer.NewRenderer(selectedScene, renderer.Config{
		NumWorkers:  pool.GetNumWorkers(),
		RowsPerTask: 1,
		Logger:      logger,
	})
	fb := renderer.NewFramebuffer(cfg.Width, cfg.Height)
	stats := r.Render(fb)

	fmt.Fprintf(stdout, "Render completed in %v using %d workers\n", stats.Elapsed, stats.NumWorkers)
	fmt.Fprintf(stdout, "Rays: %d primary, %d secondary, %d shadow (%.0f rays/s)\n",
		stats.Rays.PrimaryRays, stats.Rays.SecondaryRays, stats.Rays.ShadowRays, stats.RaysPerSecond())

	if err := display.Save(outPath, fb); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Render saved as %s\n", outPath)

	if *preview {
		opts := display.DefaultSheetOptions()
		opts.Workers = pool
		caption := fmt.Sprintf("%s  %dx%d  depth %d  %v", *sceneType, cfg.Width, cfg.Height, cfg.MaxDepth, stats.Elapsed.Round(time.Millisecond))
		sheet, err := display.SheetWithOptions(fb, caption, opts)
		if err != nil {
			return err
		}
		previewPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_preview.png"
		if err := display.Save(previewPath, sheet); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Preview saved as %s\n", previewPath)
	}

	if *archive != "" {
		codec, err := framestore.CodecByName(*codecName)
		if err != nil {
			return err
		}
		store, err := framestore.Open(*archive, codec)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s-%dx%d", sceneBaseName(*sceneType), cfg.Width, cfg.Height)
		entry, err := store.Put(key, fb)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Frame archived as %s (%d bytes, %s)\n", filepath.Join(*archive, entry.File), entry.Stored, entry.Codec)
	}

	return nil
}

// createScene resolves a built-in scene name, a scene file name in the
// scenes directory, or a path to a JSON scene file
func createScene(sceneType string) (*scene.Scene, error) {
	if sceneType == "" {
		return nil, fmt.Errorf("no scene specified")
	}

	if s, err := scene.Builtin(sceneType); err == nil {
		return s, nil
	}

	if s := tryLoadJSONScene(sceneType); s != nil {
		return s, nil
	}

	if strings.HasSuffix(sceneType, ".json") {
		// Report why an explicit file could not be used
		_, err := loaders.LoadSceneJSON(sceneType)
		return nil, err
	}
	return nil, fmt.Errorf("%w: %q", scene.ErrUnknownScene, sceneType)
}

// tryLoadJSONScene loads sceneType as a path, or as a name in the scenes
// directory. It returns nil when no valid scene file matches.
func tryLoadJSONScene(sceneType string) *scene.Scene {
	var path string
	if strings.HasSuffix(sceneType, ".json") {
		path = sceneType
	} else {
		dir := scene.FindScenesDir()
		if dir == "" {
			return nil
		}
		path = filepath.Join(dir, sceneType+".json")
	}

	if _, err := os.Stat(path); err != nil {
		return nil
	}
	s, err := loaders.LoadSceneJSON(path)
	if err != nil {
		core.Logger().Warn("failed to load scene file", "path", path, "error", err)
		return nil
	}
	return s
}

// sceneBaseName strips directories and the .json extension from a scene
// argument
func sceneBaseName(sceneType string) string {
	if strings.HasSuffix(sceneType, ".json") {
		return strings.TrimSuffix(filepath.Base(sceneType), ".json")
	}
	if _, err := scene.Builtin(sceneType); err == nil {
		return sceneType
	}
	if !strings.ContainsAny(sceneType, `/\`) && tryLoadJSONScene(sceneType) != nil {
		return sceneType
	}
	return "json-scene"
}

// createOutputDir returns output/<scene base name>
func createOutputDir(sceneType string) string {
	return filepath.Join("output", sceneBaseName(sceneType))
}
