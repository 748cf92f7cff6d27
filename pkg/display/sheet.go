package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/df07/go-whitted-raytracer/pkg/renderer"
)

// SheetOptions controls the layout of a preview sheet
type SheetOptions struct {
	Width, Height int
	Margin        int // Space around the frame, in pixels
	BorderWidth   float64
	Background    color.RGBA
	BorderColor   color.RGBA
	TextColor     color.RGBA
	Workers       *renderer.WorkerPool // Used for the background fill; nil fills serially
}

// DefaultSheetOptions returns an 800x640 dark sheet with a light border
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{
		Width:       800,
		Height:      640,
		Margin:      16,
		BorderWidth: 2,
		Background:  color.RGBA{R: 24, G: 24, B: 28, A: 255},
		BorderColor: color.RGBA{R: 200, G: 200, B: 200, A: 255},
		TextColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// captionHeight is the band reserved under the frame for one line of text
const captionHeight = 24

// Sheet letterboxes frame onto a preview sheet with a border and a caption
// line underneath
func Sheet(frame image.Image, caption string) (*image.RGBA, error) {
	return SheetWithOptions(frame, caption, DefaultSheetOptions())
}

// SheetWithOptions is Sheet with an explicit layout
func SheetWithOptions(frame image.Image, caption string, opts SheetOptions) (*image.RGBA, error) {
	inner := image.Rect(opts.Margin, opts.Margin, opts.Width-opts.Margin, opts.Height-opts.Margin-captionHeight)
	if inner.Empty() {
		return nil, fmt.Errorf("sheet %dx%d leaves no room for the frame", opts.Width, opts.Height)
	}
	if frame.Bounds().Empty() {
		return nil, fmt.Errorf("cannot place an empty frame")
	}

	canvas := renderer.NewFramebuffer(opts.Width, opts.Height)
	canvas.FillRect(canvas.Bounds(), opts.Background, opts.Workers)
	sheet := canvas.RGBA()

	target := FitRect(frame.Bounds(), inner)
	draw.ApproxBiLinear.Scale(sheet, target, frame, frame.Bounds(), draw.Src, nil)

	bordered, err := strokeBorder(sheet, target, opts)
	if err != nil {
		return nil, err
	}

	drawCaption(bordered, caption, image.Rect(0, inner.Max.Y, opts.Width, opts.Height-opts.Margin), opts.TextColor)
	return bordered, nil
}

// FitRect returns the largest rectangle with src's aspect ratio that fits
// centred inside dst
func FitRect(src, dst image.Rectangle) image.Rectangle {
	scale := min(float64(dst.Dx())/float64(src.Dx()), float64(dst.Dy())/float64(src.Dy()))
	w := max(1, int(float64(src.Dx())*scale))
	h := max(1, int(float64(src.Dy())*scale))
	x0 := dst.Min.X + (dst.Dx()-w)/2
	y0 := dst.Min.Y + (dst.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// strokeBorder outlines target just outside its edges
func strokeBorder(img *image.RGBA, target image.Rectangle, opts SheetOptions) (*image.RGBA, error) {
	dc := gg.NewContextForImage(img)
	defer dc.Close()

	half := opts.BorderWidth / 2
	dc.SetRGB(float64(opts.BorderColor.R)/255, float64(opts.BorderColor.G)/255, float64(opts.BorderColor.B)/255)
	dc.SetLineWidth(opts.BorderWidth)
	dc.DrawRectangle(
		float64(target.Min.X)-half, float64(target.Min.Y)-half,
		float64(target.Dx())+opts.BorderWidth, float64(target.Dy())+opts.BorderWidth,
	)
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("failed to stroke sheet border: %w", err)
	}

	if rgba, ok := dc.Image().(*image.RGBA); ok {
		return rgba, nil
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}

// drawCaption centres one line of text in band
func drawCaption(img *image.RGBA, caption string, band image.Rectangle, textColor color.RGBA) {
	if caption == "" {
		return
	}

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
	}

	width := d.MeasureString(caption).Ceil()
	x := band.Min.X + max(0, (band.Dx()-width)/2)
	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	baseline := band.Min.Y + (band.Dy()-textHeight)/2 + metrics.Ascent.Ceil()

	d.Dot = fixed.P(x, baseline)
	d.DrawString(caption)
}
