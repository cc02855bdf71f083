package render

import (
	"image"
	"math"

	"neurovol-viewer/internal/mathutil"
)

// rasterizeTriangle draws one flat-shaded triangle with a depth test.
// Shading is per-face, so the final color is resolved once up front and
// the pixel loop only interpolates depth, with no per-pixel color math.
func rasterizeTriangle(
	fb *FrameBuffer,
	px, py, pz []float64,
	i0, i1, i2 int,
	base [3]uint8,
	matcap *image.NRGBA,
	lc *LightConfig,
) {
	x0, y0, z0 := px[i0], py[i0], pz[i0]
	x1, y1, z1 := px[i1], py[i1], pz[i1]
	x2, y2, z2 := px[i2], py[i2], pz[i2]

	// View-space face normal, for shading and the matcap lookup.
	e1x, e1y, e1z := x1-x0, y1-y0, z1-z0
	e2x, e2y, e2z := x2-x0, y2-y0, z2-z0
	nx := e1y*e2z - e1z*e2y
	ny := e1z*e2x - e1x*e2z
	nz := e1x*e2y - e1y*e2x
	nl := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if nl < 1e-12 {
		return
	}
	nx /= nl
	ny /= nl
	nz /= nl
	// Double-sided: point the normal at the viewer regardless of winding.
	if nz < 0 {
		nx, ny, nz = -nx, -ny, -nz
	}

	var cr, cg, cb uint8
	shade := 1.0
	if matcap != nil {
		// Matcap textures carry their own baked lighting.
		cr, cg, cb = SampleMatcap(matcap, nx, -ny)
	} else {
		cr, cg, cb = base[0], base[1], base[2]
		shade = lc.ComputeShade(mathutil.Vec3{nx, ny, nz})
	}

	// sRGB decode → shade + exposure → ACES → sRGB encode, once per face.
	lr := srgbToLinear[cr] * shade * lc.Exposure
	lg := srgbToLinear[cg] * shade * lc.Exposure
	lb := srgbToLinear[cb] * shade * lc.Exposure
	outR := clamp255(math.Pow(ACESTonemap(lr), lc.InvGamma) * 255)
	outG := clamp255(math.Pow(ACESTonemap(lg), lc.InvGamma) * 255)
	outB := clamp255(math.Pow(ACESTonemap(lb), lc.InvGamma) * 255)

	// Clamped screen bounding box.
	minX := int(math.Min(math.Min(x0, x1), x2))
	maxX := int(math.Max(math.Max(x0, x1), x2)) + 1
	minY := int(math.Min(math.Min(y0, y1), y2))
	maxY := int(math.Max(math.Max(y0, y1), y2)) + 1
	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.Width {
		maxX = fb.Width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX >= maxX || minY >= maxY {
		return
	}

	// Barycentric setup.
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det
	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) - y2
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			idx := rowOff + sx
			if z <= fb.Depth[idx] {
				continue
			}
			fb.Depth[idx] = z

			pi := idx * 4
			fb.Color[pi] = outR
			fb.Color[pi+1] = outG
			fb.Color[pi+2] = outB
			fb.Color[pi+3] = 0xFF
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
