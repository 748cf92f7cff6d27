package core

import (
	"image/color"
	"math"
)

// ToRGBA converts a linear color to a display pixel.
// Each channel becomes clamp(round(c*255), 0, 255); NaN maps to 0.
func ToRGBA(c Vec3) color.RGBA {
	return color.RGBA{
		R: channelToByte(c.X),
		G: channelToByte(c.Y),
		B: channelToByte(c.Z),
		A: 255,
	}
}

// FromRGBA converts a display pixel back to a linear color in [0,1]
func FromRGBA(c color.RGBA) Vec3 {
	return NewVec3(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0)
}

func channelToByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	x := math.Round(v * 255.0)
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}
