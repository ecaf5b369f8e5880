package watermark

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"catalog-ingest/internal/domain"
)

// Compositor tiles rotated watermark text across a raster. The font is parsed
// once at construction; a parse failure is surfaced instead of silently
// producing unmarked output.
type Compositor struct {
	font *truetype.Font
}

func NewCompositor() (*Compositor, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: parse font: %v", domain.ErrCanvasUnavailable, err)
	}
	return &Compositor{font: f}, nil
}

// Apply draws the tiled overlay onto a copy of img. The source is never
// mutated and equal inputs produce identical output.
func (c *Compositor) Apply(img image.Image, spec domain.WatermarkSpec) (*image.NRGBA, error) {
	bounds := img.Bounds()
	result := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	if spec.Text == "" {
		return result, nil
	}

	opacity := math.Min(math.Max(spec.Opacity, 0), 1)
	if opacity == 0 {
		return result, nil
	}

	fontSize := float64(bounds.Dx()) / 25
	if fontSize < 12 {
		fontSize = 12
	}

	textWidth := c.measure(spec.Text, fontSize)
	hspace := 2 * textWidth
	vspace := int(1.5 * float64(textWidth))

	// The overlay spans the rotated diagonal so tiles still cover the
	// corners after rotation.
	diag := int(math.Ceil(math.Hypot(float64(bounds.Dx()), float64(bounds.Dy()))))
	overlay := image.NewNRGBA(image.Rect(0, 0, diag, diag))

	ft := freetype.NewContext()
	ft.SetDPI(72)
	ft.SetFont(c.font)
	ft.SetFontSize(fontSize)
	ft.SetClip(overlay.Bounds())
	ft.SetDst(overlay)
	ft.SetSrc(image.NewUniform(color.NRGBA{255, 255, 255, uint8(255 * opacity)}))
	ft.SetHinting(font.HintingFull)

	for row, y := 0, int(fontSize); y < diag+vspace; row, y = row+1, y+vspace {
		offset := 0
		if row%2 == 1 {
			offset = hspace / 2
		}
		for x := -textWidth + offset; x < diag; x += hspace {
			if _, err := ft.DrawString(spec.Text, freetype.Pt(x, y)); err != nil {
				return nil, fmt.Errorf("%w: draw text: %v", domain.ErrCanvasUnavailable, err)
			}
		}
	}

	rotated := imaging.Rotate(overlay, spec.Angle, color.NRGBA{})

	// Center the rotated overlay on the canvas.
	rb := rotated.Bounds()
	sp := image.Pt(
		rb.Min.X+(rb.Dx()-bounds.Dx())/2,
		rb.Min.Y+(rb.Dy()-bounds.Dy())/2,
	)
	draw.Draw(result, result.Bounds(), rotated, sp, draw.Over)

	return result, nil
}

func (c *Compositor) measure(text string, fontSize float64) int {
	face := truetype.NewFace(c.font, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	return font.MeasureString(face, text).Ceil()
}
