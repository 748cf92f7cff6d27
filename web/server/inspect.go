package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/integrator"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool           `json:"hit"`
	MaterialName string         `json:"materialName,omitempty"` // Preset name, or "custom"
	GeometryType string         `json:"geometryType,omitempty"`
	Point        [3]float64     `json:"point"`
	Normal       [3]float64     `json:"normal"`
	Distance     float64        `json:"distance"`
	Color        string         `json:"color"` // Final pixel color, #rrggbb
	Properties   map[string]any `json:"properties,omitempty"`
}

func vec3Array(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func hexColor(v core.Vec3) string {
	c := core.ToRGBA(v)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// extractMaterialInfo names a material and lists its shading parameters
func extractMaterialInfo(mat *material.Material) (string, map[string]any) {
	properties := map[string]any{
		"refractiveIndex":  mat.RefractiveIndex,
		"albedo":           [4]float64{mat.Albedo.X, mat.Albedo.Y, mat.Albedo.Z, mat.Albedo.W},
		"diffuseColor":     hexColor(mat.DiffuseColor),
		"specularExponent": mat.SpecularExponent,
	}
	for name, preset := range material.Presets() {
		if preset == mat {
			return name, properties
		}
	}
	return "custom", properties
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(shape geometry.Shape) (string, map[string]any) {
	properties := make(map[string]any)

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = vec3Array(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	case *geometry.CheckerboardPlane:
		properties["y"] = geom.Y
		properties["halfWidth"] = geom.HalfWidth
		properties["z"] = [2]float64{geom.ZFar, geom.ZNear}
		return "checkerboard", properties

	default:
		return "unknown", properties
	}
}

// inspectPixel casts the primary ray through a pixel. It returns the nearest
// shape along with its hit, or a nil shape on a miss.
func inspectPixel(sceneObj *scene.Scene, pixelX, pixelY int) (geometry.Shape, *geometry.HitRecord, core.Vec3) {
	camera := renderer.NewCamera(sceneObj.Config.Width, sceneObj.Config.Height, sceneObj.Config.FOV)
	ray := camera.GetRay(pixelX, pixelY)

	var stats integrator.TraceStats
	color := integrator.New(sceneObj.Config).RayColor(ray, sceneObj, &stats)

	// Same scan as Scene.Intersect, keeping track of which shape won
	var nearest geometry.Shape
	var nearestHit *geometry.HitRecord
	tMax := scene.FarPlane
	for _, shape := range sceneObj.Shapes {
		if hit, ok := shape.Hit(ray, tMax); ok {
			tMax = hit.T
			nearest, nearestHit = shape, hit
		}
	}
	return nearest, nearestHit, color
}

// handleInspect reports what the primary ray through a pixel hits
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sceneID := query.Get("scene")
	if sceneID == "" {
		sceneID = "default"
	}
	sceneObj, _, err := s.loadScene(sceneID)
	if err != nil {
		writeSceneError(w, err)
		return
	}

	width, height, err := s.parseSize(query, sceneObj.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sceneObj.Config.Width = width
	sceneObj.Config.Height = height

	pixelX, err := strconv.Atoi(query.Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(query.Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid y coordinate")
		return
	}
	if pixelX < 0 || pixelX >= width || pixelY < 0 || pixelY >= height {
		writeError(w, http.StatusBadRequest, "pixel coordinates out of bounds")
		return
	}

	shape, hit, color := inspectPixel(sceneObj, pixelX, pixelY)
	if shape == nil {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false, Color: hexColor(color)})
		return
	}

	materialName, materialProps := extractMaterialInfo(hit.Material)
	geometryType, geometryProps := extractGeometryInfo(shape)

	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:          true,
		MaterialName: materialName,
		GeometryType: geometryType,
		Point:        vec3Array(hit.Point),
		Normal:       vec3Array(hit.Normal),
		Distance:     hit.T,
		Color:        hexColor(color),
		Properties: map[string]any{
			"material": materialProps,
			"geometry": geometryProps,
		},
	})
}
