package material

import (
	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// Material describes how a surface responds to light.
//
// Albedo weights the four contributions to the final color: diffuse,
// specular, reflection and refraction (X, Y, Z, W). The weights are not
// normalized and may exceed 1.
type Material struct {
	RefractiveIndex  float64
	Albedo           core.Vec4
	DiffuseColor     core.Vec3 // Linear RGB
	SpecularExponent float64
}

// NewMaterial creates a new material
func NewMaterial(refractiveIndex float64, albedo core.Vec4, diffuseColor core.Vec3, specularExponent float64) *Material {
	return &Material{
		RefractiveIndex:  refractiveIndex,
		Albedo:           albedo,
		DiffuseColor:     diffuseColor,
		SpecularExponent: specularExponent,
	}
}

// Default returns a purely diffuse black material with refractive index 1
func Default() *Material {
	return NewMaterial(1.0, core.NewVec4(1, 0, 0, 0), core.Vec3{}, 0)
}

// FlatColor creates a purely diffuse material from an 8-bit display color
func FlatColor(r, g, b uint8) *Material {
	m := Default()
	m.DiffuseColor = core.NewVec3(float64(r)/255.0, float64(g)/255.0, float64(b)/255.0)
	return m
}

// WithDiffuseColor returns a copy of the material with a different diffuse color
func (m *Material) WithDiffuseColor(c core.Vec3) *Material {
	clone := *m
	clone.DiffuseColor = c
	return &clone
}

// Preset materials
var (
	Ivory     = NewMaterial(1.0, core.NewVec4(0.6, 0.3, 0.1, 0.0), core.NewVec3(0.4, 0.4, 0.3), 50)
	Glass     = NewMaterial(1.5, core.NewVec4(0.0, 0.5, 0.1, 0.8), core.NewVec3(0.6, 0.7, 0.8), 125)
	RedRubber = NewMaterial(1.0, core.NewVec4(0.9, 0.1, 0.0, 0.0), core.NewVec3(0.3, 0.1, 0.1), 10)
	Mirror    = NewMaterial(1.0, core.NewVec4(0.0, 10.0, 0.8, 0.0), core.NewVec3(1.0, 1.0, 1.0), 1425)
)

// Presets returns the named preset materials
func Presets() map[string]*Material {
	return map[string]*Material{
		"ivory":      Ivory,
		"glass":      Glass,
		"red_rubber": RedRubber,
		"mirror":     Mirror,
	}
}
