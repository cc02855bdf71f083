package render

import (
	"image"
	"math"
)

// FrameBuffer is the rasterization target, flat slices for cache locality.
// Depth grows toward the viewer; pixels never written keep alpha 0.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	Depth  []float64 // per-pixel depth, len = W*H, initialized to -inf
}

// NewFrameBuffer allocates a transparent color buffer and a -inf depth buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	depth := make([]float64, n)
	for i := range depth {
		depth[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		Depth:  depth,
	}
}

// Image copies the color planes into a standard NRGBA image.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Color)
	return img
}
