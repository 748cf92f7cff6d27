package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// ImageData contains loaded image data as Vec3 color array
type ImageData struct {
	Width  int
	Height int
	Format string // Registered decoder name, e.g. "png"
	Pixels []core.Vec3
}

// LoadImage loads a PNG, JPEG, BMP, TIFF or WebP image and converts it to a
// row-major Vec3 color array with channels in [0, 1]
func LoadImage(filename string) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Format is detected from the file header
	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filename, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// RGBA returns uint32 in [0, 65535], convert to [0, 1]
			pixels[y*width+x] = core.NewVec3(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)
		}
	}

	core.Logger().Debug("image loaded", "file", filename, "format", format, "width", width, "height", height)

	return &ImageData{
		Width:  width,
		Height: height,
		Format: format,
		Pixels: pixels,
	}, nil
}

// LoadEnvironmentMap loads an equirectangular panorama for use as a scene
// background
func LoadEnvironmentMap(filename string) (*scene.EnvironmentMap, error) {
	data, err := LoadImage(filename)
	if err != nil {
		return nil, err
	}
	envMap := scene.NewEnvironmentMap(data.Width, data.Height, data.Pixels)
	if envMap == nil {
		return nil, fmt.Errorf("environment map %s is empty", filename)
	}
	return envMap, nil
}
