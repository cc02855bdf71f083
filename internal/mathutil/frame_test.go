package mathutil

import (
	"math"
	"testing"
)

const frameTol = 1e-9

func TestFrameCentersVolume(t *testing.T) {
	f := NewFrame([3]int{10, 20, 30}, [3]float64{1, 1, 1}, 2.0)

	center := f.WorldPos(5, 10, 15)
	if center.Len() > frameTol {
		t.Errorf("volume center should map to origin, got %v", center)
	}
}

func TestFrameLargestAxisSpansWorldSize(t *testing.T) {
	f := NewFrame([3]int{100, 50, 25}, [3]float64{1, 1, 1}, 2.0)

	lo := f.WorldPos(0, 0, 0)
	hi := f.WorldPos(100, 50, 25)
	if got := hi[0] - lo[0]; math.Abs(got-2.0) > frameTol {
		t.Errorf("largest axis should span 2.0, got %v", got)
	}
	// Smaller axes scale by the same factor, preserving aspect ratio.
	if got := hi[1] - lo[1]; math.Abs(got-1.0) > frameTol {
		t.Errorf("Y axis should span 1.0, got %v", got)
	}
	if got := hi[2] - lo[2]; math.Abs(got-0.5) > frameTol {
		t.Errorf("Z axis should span 0.5, got %v", got)
	}
}

func TestFrameAnisotropicVoxels(t *testing.T) {
	// 2.5mm slices along Z: 40*2.5 = 100mm dominates 64*1 = 64mm.
	f := NewFrame([3]int{64, 64, 40}, [3]float64{1, 1, 2.5}, 2.0)

	ext := f.Extent()
	if math.Abs(ext[2]-2.0) > frameTol {
		t.Errorf("Z extent should be 2.0, got %v", ext[2])
	}
	if math.Abs(ext[0]-2.0*64/100) > frameTol {
		t.Errorf("X extent should be %v, got %v", 2.0*64/100, ext[0])
	}

	vw := f.VoxelWorld()
	if math.Abs(vw[2]/vw[0]-2.5) > frameTol {
		t.Errorf("voxel aspect should survive mapping, got ratio %v", vw[2]/vw[0])
	}
}

func TestFrameFractionalIndices(t *testing.T) {
	f := NewFrame([3]int{8, 8, 8}, [3]float64{1, 1, 1}, 2.0)

	// Affine mapping: midpoint of two mapped corners equals mapped midpoint.
	a := f.WorldPos(2, 3, 4)
	b := f.WorldPos(3, 3, 4)
	mid := f.WorldPos(2.5, 3, 4)
	if got := a.Lerp(b, 0.5); got.Dist(mid) > frameTol {
		t.Errorf("fractional index mismatch: lerp %v vs direct %v", got, mid)
	}
}

func TestFrameDefaultWorldSize(t *testing.T) {
	f := NewFrame([3]int{10, 10, 10}, [3]float64{1, 1, 1}, 0)
	ext := f.Extent()
	if math.Abs(ext[0]-DefaultWorldSize) > frameTol {
		t.Errorf("zero worldSize should fall back to %v, got extent %v", DefaultWorldSize, ext[0])
	}
}

func TestFrameDegenerate(t *testing.T) {
	f := NewFrame([3]int{0, 0, 0}, [3]float64{0, 0, 0}, 2.0)
	p := f.WorldPos(1, 2, 3)
	for i, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("degenerate frame produced non-finite coordinate %d: %v", i, c)
		}
	}
	if p.Len() != 0 {
		t.Errorf("degenerate frame should map to origin, got %v", p)
	}
}
