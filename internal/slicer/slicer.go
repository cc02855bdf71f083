// Package slicer samples 2D orthogonal cross-sections from a parsed voxel
// field and applies intensity windowing for display.
package slicer

import (
	"fmt"
	"image"

	"neurovol-viewer/internal/nifti"
)

// Plane selects one of the three canonical orthogonal cuts of a volume.
type Plane int

const (
	Axial    Plane = iota // fixed Z, image axes X/Y
	Coronal               // fixed Y, image axes X/Z
	Sagittal              // fixed X, image axes Y/Z
)

// Planes lists the cuts in display order.
var Planes = [3]Plane{Axial, Coronal, Sagittal}

func (p Plane) String() string {
	switch p {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	}
	return fmt.Sprintf("plane(%d)", int(p))
}

// ParsePlane maps the wire names used by the HTTP API and CLI flags.
func ParsePlane(s string) (Plane, error) {
	switch s {
	case "axial":
		return Axial, nil
	case "coronal":
		return Coronal, nil
	case "sagittal":
		return Sagittal, nil
	}
	return 0, fmt.Errorf("slicer: unknown plane %q", s)
}

// Axis returns the volume axis the plane holds fixed.
func (p Plane) Axis() int {
	switch p {
	case Coronal:
		return 1
	case Sagittal:
		return 0
	}
	return 2
}

// Count returns how many cross-sections the plane offers for a volume,
// the upper bound for slider-style index selection.
func (p Plane) Count(vol *nifti.Volume) int {
	return vol.Header.Dim[p.Axis()]
}

// Window is a linear contrast remap around a center (level) and spread
// (width), both fractions of the normalized intensity range. Values below
// the window floor go black, values above its ceiling go white.
type Window struct {
	Level float64
	Width float64
}

// DefaultWindow spans the full range centered halfway, which makes
// windowing the identity: normalized values pass through unchanged.
var DefaultWindow = Window{Level: 0.5, Width: 1.0}

// apply maps one normalized sample through the window to an 8-bit gray.
// Width is floored at one 8-bit step so a zero-width window degrades to a
// hard threshold instead of dividing by zero.
func (w Window) apply(v float32) uint8 {
	width := w.Width * 255
	if width < 1 {
		width = 1
	}
	lower := w.Level*255 - width/2
	g := (float64(v)*255 - lower) / width
	if g < 0 {
		g = 0
	} else if g > 1 {
		g = 1
	}
	return uint8(g*255 + 0.5)
}

// Request names one cross-section: the plane, the index along its fixed
// axis, and the display window. Extraction keeps no state beyond the
// request, so concurrent calls over the same volume are safe.
type Request struct {
	Plane  Plane
	Index  int
	Window Window
}

// Extract samples one cross-section as an opaque grayscale raster.
// Axial rows follow raw scan order; coronal and sagittal rows are written
// bottom-up so the top of the head renders at the top of the image.
func Extract(vol *nifti.Volume, req Request) (*image.NRGBA, error) {
	dim := vol.Header.Dim
	if axis := req.Plane.Axis(); req.Index < 0 || req.Index >= dim[axis] {
		return nil, fmt.Errorf("slicer: %s index %d outside [0,%d)", req.Plane, req.Index, dim[axis])
	}

	var w, h int
	var sample func(px, py int) float32
	switch req.Plane {
	case Axial:
		w, h = dim[0], dim[1]
		sample = func(px, py int) float32 { return vol.Normalized(px, py, req.Index) }
	case Coronal:
		w, h = dim[0], dim[2]
		sample = func(px, py int) float32 { return vol.Normalized(px, req.Index, dim[2]-1-py) }
	case Sagittal:
		w, h = dim[1], dim[2]
		sample = func(px, py int) float32 { return vol.Normalized(req.Index, px, dim[2]-1-py) }
	default:
		return nil, fmt.Errorf("slicer: unknown plane %d", int(req.Plane))
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		row := py * img.Stride
		for px := 0; px < w; px++ {
			g := req.Window.apply(sample(px, py))
			i := row + px*4
			img.Pix[i] = g
			img.Pix[i+1] = g
			img.Pix[i+2] = g
			img.Pix[i+3] = 0xFF
		}
	}
	return img, nil
}
