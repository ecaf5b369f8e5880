package crop

import (
	"errors"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"catalog-ingest/internal/domain"
)

const (
	MinZoom = 1.0
	MaxZoom = 3.0
)

var (
	// ErrViewportClosed is returned for events arriving after confirm or cancel.
	ErrViewportClosed = errors.New("viewport closed")
	// ErrGestureActive is returned when an event conflicts with the gesture in progress.
	ErrGestureActive = errors.New("gesture in progress")
)

type phase int

const (
	phaseIdle phase = iota
	phaseDragging
	phaseZooming
	phaseConfirmed
	phaseCancelled
)

// Viewport tracks the interactive crop selection over a source raster.
// The selection is always the largest rectangle of the chosen aspect that fits
// the source, shrunk by the zoom factor and positioned by its center; pan and
// zoom events keep it clamped inside the source bounds.
//
// Not safe for concurrent use; callers serialize events per session.
type Viewport struct {
	src    image.Image
	aspect domain.AspectRatio
	zoom   float64
	cx, cy float64
	ph     phase
}

func NewViewport(src image.Image, aspect domain.AspectRatio) *Viewport {
	b := src.Bounds()
	v := &Viewport{
		src:    src,
		aspect: aspect,
		zoom:   MinZoom,
		cx:     float64(b.Dx()) / 2,
		cy:     float64(b.Dy()) / 2,
	}
	return v
}

// BeginDrag starts a pan gesture.
func (v *Viewport) BeginDrag() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseIdle {
		return ErrGestureActive
	}
	v.ph = phaseDragging
	return nil
}

// Drag moves the selection center by a source-pixel delta.
func (v *Viewport) Drag(dx, dy float64) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseDragging {
		return ErrGestureActive
	}
	v.cx += dx
	v.cy += dy
	v.clamp()
	return nil
}

func (v *Viewport) EndDrag() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseDragging {
		return ErrGestureActive
	}
	v.ph = phaseIdle
	return nil
}

// BeginZoom starts a pinch/scroll gesture.
func (v *Viewport) BeginZoom() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseIdle {
		return ErrGestureActive
	}
	v.ph = phaseZooming
	return nil
}

// ZoomTo sets the zoom factor, clamped to [MinZoom, MaxZoom].
func (v *Viewport) ZoomTo(z float64) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseZooming {
		return ErrGestureActive
	}
	v.zoom = math.Min(math.Max(z, MinZoom), MaxZoom)
	v.clamp()
	return nil
}

func (v *Viewport) EndZoom() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseZooming {
		return ErrGestureActive
	}
	v.ph = phaseIdle
	return nil
}

// SetAspect switches the ratio constraint, keeping the current center and zoom
// and re-clamping the selection into the source bounds.
func (v *Viewport) SetAspect(a domain.AspectRatio) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if v.ph != phaseIdle {
		return ErrGestureActive
	}
	v.aspect = a
	v.clamp()
	return nil
}

// Confirm closes the viewport and extracts the selected raster,
// resampled down to at most MaxCropOutputDim per side.
func (v *Viewport) Confirm() (image.Image, error) {
	if err := v.checkOpen(); err != nil {
		return nil, err
	}
	if v.ph != phaseIdle {
		return nil, ErrGestureActive
	}
	region := v.Region()
	v.ph = phaseConfirmed
	return Extract(v.src, region), nil
}

// Cancel closes the viewport; all further events fail.
func (v *Viewport) Cancel() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	v.ph = phaseCancelled
	return nil
}

// Region resolves the current selection to integer source-pixel coordinates.
func (v *Viewport) Region() domain.CropRegion {
	b := v.src.Bounds()
	w, h := v.selectionSize()
	x := int(math.Round(v.cx - w/2))
	y := int(math.Round(v.cy - h/2))
	wi := int(math.Round(w))
	hi := int(math.Round(h))

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+wi > b.Dx() {
		wi = b.Dx() - x
	}
	if y+hi > b.Dy() {
		hi = b.Dy() - y
	}
	if wi < 1 {
		wi = 1
	}
	if hi < 1 {
		hi = 1
	}

	return domain.CropRegion{
		X: x, Y: y, Width: wi, Height: hi,
		Zoom:   v.zoom,
		Aspect: v.aspect.Name,
	}
}

func (v *Viewport) checkOpen() error {
	if v.ph == phaseConfirmed || v.ph == phaseCancelled {
		return ErrViewportClosed
	}
	return nil
}

func (v *Viewport) selectionSize() (float64, float64) {
	b := v.src.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())

	var w, h float64
	if v.aspect.Free() {
		w, h = sw, sh
	} else if r := v.aspect.Value(); sw/sh > r {
		h = sh
		w = h * r
	} else {
		w = sw
		h = w / r
	}
	return w / v.zoom, h / v.zoom
}

func (v *Viewport) clamp() {
	b := v.src.Bounds()
	w, h := v.selectionSize()
	v.cx = math.Min(math.Max(v.cx, w/2), float64(b.Dx())-w/2)
	v.cy = math.Min(math.Max(v.cy, h/2), float64(b.Dy())-h/2)
}

// Extract copies the region out of src with CatmullRom resampling, scaling the
// result down so neither side exceeds MaxCropOutputDim.
func Extract(src image.Image, r domain.CropRegion) *image.NRGBA {
	outW, outH := r.Width, r.Height
	if longest := math.Max(float64(outW), float64(outH)); longest > domain.MaxCropOutputDim {
		scale := domain.MaxCropOutputDim / longest
		outW = int(math.Round(float64(outW) * scale))
		outH = int(math.Round(float64(outH) * scale))
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	b := src.Bounds()
	sr := image.Rect(b.Min.X+r.X, b.Min.Y+r.Y, b.Min.X+r.X+r.Width, b.Min.Y+r.Y+r.Height)

	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, xdraw.Src, nil)
	return dst
}
