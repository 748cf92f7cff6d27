package loaders

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// SceneFile is the JSON layout of a scene description
type SceneFile struct {
	Name         string                 `json:"name,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Group        string                 `json:"group,omitempty"`
	Width        int                    `json:"width,omitempty"`
	Height       int                    `json:"height,omitempty"`
	MaxDepth     *int                   `json:"maxDepth,omitempty"` // 0 is valid, so nil means default
	FOVDeg       float64                `json:"fovDeg,omitempty"`
	Shading      string                 `json:"shading,omitempty"`
	Background   *BackgroundCfg         `json:"background,omitempty"`
	Materials    map[string]MaterialCfg `json:"materials,omitempty"`
	Spheres      []SphereCfg            `json:"spheres"`
	Lights       []LightCfg             `json:"lights,omitempty"`
	Checkerboard bool                   `json:"checkerboard,omitempty"`
}

// BackgroundCfg selects either a solid color or an environment map image.
// A relative envmap path is resolved against the scene file's directory.
type BackgroundCfg struct {
	Color  *[3]float64 `json:"color,omitempty"`
	EnvMap string      `json:"envmap,omitempty"`
}

// MaterialCfg describes a named material
type MaterialCfg struct {
	IOR              float64     `json:"ior,omitempty"` // defaults 1
	Albedo           *[4]float64 `json:"albedo,omitempty"`
	Color            [3]float64  `json:"color"`
	SpecularExponent float64     `json:"specularExponent,omitempty"`
}

// SphereCfg places a sphere with a material from the materials table or a
// preset name
type SphereCfg struct {
	Center   [3]float64 `json:"center"`
	Radius   float64    `json:"radius"`
	Material string     `json:"material"`
}

// LightCfg places a point light
type LightCfg struct {
	Position  [3]float64 `json:"position"`
	Intensity float64    `json:"intensity"`
}

func vec3(v [3]float64) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

// LoadSceneJSON reads and builds a scene from a JSON file
func LoadSceneJSON(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	s, err := ParseSceneJSON(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// ParseSceneJSON builds a scene from JSON. baseDir resolves relative
// environment map paths. All validation problems are reported together.
func ParseSceneJSON(data []byte, baseDir string) (*scene.Scene, error) {
	var cfg SceneFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scene JSON: %w", err)
	}

	var problems []string

	materials := material.Presets()
	names := make([]string, 0, len(cfg.Materials))
	for name := range cfg.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m, err := buildMaterial(cfg.Materials[name])
		if err != nil {
			problems = append(problems, fmt.Sprintf("material %q: %v", name, err))
			continue
		}
		materials[name] = m
	}

	s := scene.New(nil, nil)

	for i, sc := range cfg.Spheres {
		if sc.Radius <= 0 {
			problems = append(problems, fmt.Sprintf("sphere %d: radius must be positive, got %g", i, sc.Radius))
		}
		mat, ok := materials[sc.Material]
		if !ok {
			problems = append(problems, fmt.Sprintf("sphere %d: unknown material %q", i, sc.Material))
			continue
		}
		s.AddSphere(geometry.NewSphere(vec3(sc.Center), sc.Radius, mat))
	}

	if cfg.Checkerboard {
		s.Shapes = append(s.Shapes, geometry.NewCheckerboardPlane())
	}

	for i, lc := range cfg.Lights {
		if lc.Intensity < 0 {
			problems = append(problems, fmt.Sprintf("light %d: intensity must be non-negative, got %g", i, lc.Intensity))
			continue
		}
		s.AddLight(lights.NewPointLight(vec3(lc.Position), lc.Intensity))
	}

	if cfg.Width != 0 {
		s.Config.Width = cfg.Width
	}
	if cfg.Height != 0 {
		s.Config.Height = cfg.Height
	}
	if s.Config.Width <= 0 || s.Config.Height <= 0 {
		problems = append(problems, fmt.Sprintf("image size must be positive, got %dx%d", s.Config.Width, s.Config.Height))
	}

	if cfg.MaxDepth != nil {
		if *cfg.MaxDepth < 0 {
			problems = append(problems, fmt.Sprintf("maxDepth must be non-negative, got %d", *cfg.MaxDepth))
		}
		s.Config.MaxDepth = *cfg.MaxDepth
	}

	if cfg.FOVDeg != 0 {
		if cfg.FOVDeg <= 0 || cfg.FOVDeg >= 180 {
			problems = append(problems, fmt.Sprintf("fovDeg must be in (0, 180), got %g", cfg.FOVDeg))
		}
		s.Config.FOV = cfg.FOVDeg * math.Pi / 180
	}

	shading, err := scene.ParseShading(cfg.Shading)
	if err != nil {
		problems = append(problems, err.Error())
	}
	s.Config.Shading = shading

	if bg := cfg.Background; bg != nil {
		switch {
		case bg.Color != nil && bg.EnvMap != "":
			problems = append(problems, "background: color and envmap are mutually exclusive")
		case bg.Color != nil:
			s.Background = scene.SolidBackground(vec3(*bg.Color))
		case bg.EnvMap != "":
			path := bg.EnvMap
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			envMap, err := LoadEnvironmentMap(path)
			if err != nil {
				problems = append(problems, fmt.Sprintf("background: %v", err))
			} else {
				s.Background = envMap
			}
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid scene: %s", strings.Join(problems, "; "))
	}

	core.Logger().Debug("scene parsed",
		"name", cfg.Name, "spheres", len(cfg.Spheres), "lights", len(cfg.Lights),
		"checkerboard", cfg.Checkerboard)

	return s, nil
}

func buildMaterial(mc MaterialCfg) (*material.Material, error) {
	ior := mc.IOR
	if ior == 0 {
		ior = 1
	}
	if ior < 0 {
		return nil, fmt.Errorf("ior must be positive, got %g", mc.IOR)
	}

	albedo := core.NewVec4(1, 0, 0, 0)
	if mc.Albedo != nil {
		a := *mc.Albedo
		albedo = core.NewVec4(a[0], a[1], a[2], a[3])
	}

	if mc.SpecularExponent < 0 {
		return nil, fmt.Errorf("specularExponent must be non-negative, got %g", mc.SpecularExponent)
	}

	return material.NewMaterial(ior, albedo, vec3(mc.Color), mc.SpecularExponent), nil
}
