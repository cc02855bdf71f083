package render

import (
	"image"
	"math"

	"neurovol-viewer/internal/mathutil"
	"neurovol-viewer/internal/mesh"
	"neurovol-viewer/internal/postprocess"
)

// edgeMargin is the blank border kept around the mesh at 1x output size.
const edgeMargin = 16

// Options selects output geometry and appearance for one preview render.
type Options struct {
	Size        int // output edge length in pixels; <=0 selects 256
	Supersample int // internal oversampling factor; <1 renders at 1x
	Preset      Preset
	Matcap      *image.NRGBA // overrides flat shading when set
}

// Render rasterizes the mesh orthographically into a square preview with
// a transparent background: rotate per the preset, frame the rotated
// bounds with a fixed margin, depth-test flat-shaded triangles, then
// filter back down from the supersampled buffer.
func Render(m *mesh.TriangleMesh, opt Options) *image.NRGBA {
	size := opt.Size
	if size <= 0 {
		size = 256
	}
	if m.NumTriangles() == 0 {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}
	ss := opt.Supersample
	if ss < 1 {
		ss = 1
	}
	renderSize := size * ss

	R := opt.Preset.viewRotation()

	// Rotate every vertex once and track the view-space bounds.
	n := len(m.Positions)
	rot := make([]mathutil.Vec3, n)
	lo := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, p := range m.Positions {
		t := R.MulVec3(p)
		rot[i] = t
		for k := 0; k < 3; k++ {
			if t[k] < lo[k] {
				lo[k] = t[k]
			}
			if t[k] > hi[k] {
				hi[k] = t[k]
			}
		}
	}

	center := lo.Add(hi).Scale(0.5)
	span := math.Max(hi[0]-lo[0], hi[1]-lo[1])
	if span < 1e-3 {
		span = 1e-3
	}
	margin := edgeMargin * ss
	scale := float64(renderSize-2*margin) / span

	// Project to screen: X right, Y down, depth toward the viewer.
	px := make([]float64, n)
	py := make([]float64, n)
	pz := make([]float64, n)
	half := float64(renderSize) / 2
	for i, t := range rot {
		px[i] = (t[0]-center[0])*scale + half
		py[i] = -(t[1]-center[1])*scale + half
		pz[i] = t[2]
	}

	fb := NewFrameBuffer(renderSize, renderSize)
	lc := DefaultLightConfig()
	if opt.Preset.Exposure > 0 {
		lc.Exposure = opt.Preset.Exposure
	}
	base := opt.Preset.Surface
	if base == ([3]uint8{}) {
		base = corticalGray
	}

	for i := 0; i < m.NumTriangles(); i++ {
		rasterizeTriangle(fb, px, py, pz, 3*i, 3*i+1, 3*i+2, base, opt.Matcap, &lc)
	}

	img := fb.Image()
	if ss > 1 {
		img = postprocess.Downsample(img, size)
	}
	return img
}
