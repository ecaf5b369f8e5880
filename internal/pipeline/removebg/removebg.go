package removebg

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"catalog-ingest/internal/domain"
)

// Manager owns the process-wide matting session. The session is created
// lazily on first use and torn down whenever inference fails, so the next
// call starts from a clean model load.
type Manager struct {
	cfg     Config
	factory sessionFactory

	mu   sync.Mutex
	sess session
}

func NewManager(cfg Config) *Manager {
	if cfg.InputSize <= 0 {
		cfg.InputSize = domain.MaxSegmentInputDim
	}
	return &Manager{cfg: cfg, factory: newORTSession}
}

// Remove cuts the background out of img: the source RGB is kept and the alpha
// channel is replaced with the model's foreground mask. Oversized inputs are
// downscaled to MaxSegmentInputDim per side before inference.
func (m *Manager) Remove(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	working := imaging.Clone(img)
	b := working.Bounds()
	if b.Dx() > domain.MaxSegmentInputDim || b.Dy() > domain.MaxSegmentInputDim {
		working = imaging.Fit(working, domain.MaxSegmentInputDim, domain.MaxSegmentInputDim, imaging.Lanczos)
		b = working.Bounds()
	}

	input := normalize(imaging.Resize(working, m.cfg.InputSize, m.cfg.InputSize, imaging.Lanczos))

	raw, err := m.infer(input)
	if err != nil {
		return nil, err
	}

	mask := maskImage(raw, m.cfg.InputSize)
	mask = imaging.Resize(mask, b.Dx(), b.Dy(), imaging.Lanczos)

	return composite(working, mask), nil
}

// Invalidate drops the current session so the next Remove reloads the model.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		m.sess.Destroy()
		m.sess = nil
	}
}

func (m *Manager) infer(input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil {
		sess, err := m.factory(m.cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedDevice, err)
		}
		m.sess = sess
	}

	raw, err := m.sess.Run(input)
	if err != nil {
		m.sess.Destroy()
		m.sess = nil
		return nil, classify(err)
	}
	return raw, nil
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "memory") || strings.Contains(msg, "range") {
		return fmt.Errorf("%w: %v", domain.ErrResourceExhausted, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUnsupportedDevice, err)
}

// normalize converts the raster to a CHW float32 tensor centered on 0.5.
func normalize(img *image.NRGBA) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	out := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			p := y*w + x
			out[p] = float32(img.Pix[i])/255 - 0.5
			out[plane+p] = float32(img.Pix[i+1])/255 - 0.5
			out[2*plane+p] = float32(img.Pix[i+2])/255 - 0.5
		}
	}
	return out
}

// maskImage stretches the raw mask to the full gray range.
func maskImage(raw []float32, size int) *image.NRGBA {
	mi, ma := raw[0], raw[0]
	for _, v := range raw {
		if v < mi {
			mi = v
		}
		if v > ma {
			ma = v
		}
	}
	span := ma - mi
	mask := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := raw[y*size+x]
			var g uint8
			if span > 1e-6 {
				g = uint8((v - mi) / span * 255)
			} else if v > 0 {
				g = 255
			}
			i := mask.PixOffset(x, y)
			mask.Pix[i] = g
			mask.Pix[i+1] = g
			mask.Pix[i+2] = g
			mask.Pix[i+3] = 255
		}
	}
	return mask
}

// composite keeps the source RGB and takes alpha from the mask's gray value.
func composite(src, mask *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			oi := out.PixOffset(x, y)
			out.Pix[oi] = src.Pix[si]
			out.Pix[oi+1] = src.Pix[si+1]
			out.Pix[oi+2] = src.Pix[si+2]
			out.Pix[oi+3] = mask.Pix[mask.PixOffset(x, y)]
		}
	}
	return out
}
