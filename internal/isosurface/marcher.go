package isosurface

import (
	"context"
	"fmt"
	"math"

	"neurovol-viewer/internal/mathutil"
	"neurovol-viewer/internal/mesh"
	"neurovol-viewer/internal/nifti"
)

// DefaultStride samples every other voxel per axis, trading resolution for
// speed on full-size scans.
const DefaultStride = 2

// interpEpsilon short-circuits edge interpolation when the threshold sits
// on a corner or the edge is flat, so vertex placement stays exact instead
// of accumulating division artifacts.
const interpEpsilon = 1e-5

// Request describes one extraction pass. Requests are immutable values and
// the extractor holds no session state, so concurrent passes over the same
// volume are safe.
type Request struct {
	Threshold float64 // compared against normalized intensity, in [0,1]
	Stride    int     // sampling step per axis; <1 selects DefaultStride
}

func (r Request) stride() int {
	if r.Stride < 1 {
		return DefaultStride
	}
	return r.Stride
}

// Progress receives the fraction of outer-axis slabs finished, in (0,1].
// It runs on the extraction goroutine after each slab, at the same cadence
// as the cancellation checkpoint.
type Progress func(fraction float64)

// Extract walks the voxel grid in stride-sized cells, classifies each cell
// against the threshold, and emits the isosurface as a triangle soup in
// frame world coordinates. The context is checked once per outer-axis
// slab: a canceled context abandons the pass and returns ctx.Err().
func Extract(ctx context.Context, vol *nifti.Volume, frame mathutil.Frame, req Request, progress Progress) (*mesh.TriangleMesh, error) {
	if !(req.Threshold >= 0 && req.Threshold <= 1) { // rejects NaN too
		return nil, fmt.Errorf("isosurface: threshold %v outside [0,1]", req.Threshold)
	}
	stride := req.stride()
	nx, ny, nz := vol.Header.Dim[0], vol.Header.Dim[1], vol.Header.Dim[2]

	out := &mesh.TriangleMesh{}
	slabs := 0
	if nz > stride {
		slabs = (nz-stride-1)/stride + 1
	}
	if slabs == 0 {
		// Thinner than one cell along Z; nothing to walk.
		if progress != nil {
			progress(1)
		}
		return out, nil
	}

	done := 0
	for z := 0; z+stride < nz; z += stride {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for y := 0; y+stride < ny; y += stride {
			for x := 0; x+stride < nx; x += stride {
				marchCell(vol, frame, req.Threshold, stride, x, y, z, out)
			}
		}
		done++
		if progress != nil {
			progress(float64(done) / float64(slabs))
		}
	}
	return out, nil
}

// marchCell classifies one cell and appends its triangles, if any.
func marchCell(vol *nifti.Volume, frame mathutil.Frame, threshold float64, stride, x, y, z int, out *mesh.TriangleMesh) {
	var vals [8]float64
	var pos [8][3]int
	ci := 0
	for c, off := range cornerOffset {
		cx, cy, cz := x+off[0]*stride, y+off[1]*stride, z+off[2]*stride
		v := float64(vol.Normalized(cx, cy, cz))
		vals[c] = v
		pos[c] = [3]int{cx, cy, cz}
		if v > threshold {
			ci |= 1 << c
		}
	}
	mask := edgeTable[ci]
	if mask == 0 {
		return
	}

	var verts [12]mathutil.Vec3
	for e := 0; e < 12; e++ {
		if mask&(1<<e) == 0 {
			continue
		}
		a, b := edgeCorners[e][0], edgeCorners[e][1]
		verts[e] = interpolate(frame, pos[a], pos[b], vals[a], vals[b], threshold)
	}

	row := &triTable[ci]
	for t := 0; t < len(row) && row[t] != -1; t += 3 {
		out.AddTriangle(verts[row[t]], verts[row[t+1]], verts[row[t+2]])
	}
}

// interpolate places the surface crossing on the edge between corners a
// and b. An exact threshold hit snaps to that corner's world position, and
// a flat edge collapses to its first corner, keeping placement
// deterministic with no division by near-zero.
func interpolate(frame mathutil.Frame, pa, pb [3]int, va, vb, threshold float64) mathutil.Vec3 {
	// Canonical endpoint order: neighboring cells walk their shared edge
	// from opposite ends, and this keeps the computed crossing
	// bit-identical on both sides.
	if pb[2] < pa[2] || (pb[2] == pa[2] && (pb[1] < pa[1] || (pb[1] == pa[1] && pb[0] < pa[0]))) {
		pa, pb = pb, pa
		va, vb = vb, va
	}
	wa := frame.WorldPos(float64(pa[0]), float64(pa[1]), float64(pa[2]))
	if math.Abs(threshold-va) < interpEpsilon {
		return wa
	}
	wb := frame.WorldPos(float64(pb[0]), float64(pb[1]), float64(pb[2]))
	if math.Abs(threshold-vb) < interpEpsilon {
		return wb
	}
	if math.Abs(va-vb) < interpEpsilon {
		return wa
	}
	t := (threshold - va) / (vb - va)
	return wa.Lerp(wb, t)
}
