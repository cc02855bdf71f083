package mathutil

// DefaultWorldSize is the world-space extent assigned to the volume's
// largest physical axis.
const DefaultWorldSize = 2.0

// Frame maps voxel indices into a centered world coordinate system. The
// volume is scaled uniformly so its largest physical extent (dimension times
// voxel spacing) spans WorldSize units, and translated so the volume center
// sits at the origin. Slice geometry and extracted surfaces share one frame,
// so they line up without per-consumer offsets.
type Frame struct {
	Dim       [3]int
	VoxelSize [3]float64 // mm per voxel along each axis
	Scale     float64    // world units per mm
}

// NewFrame derives the uniform scale from the volume's largest physical
// axis. A non-positive worldSize falls back to DefaultWorldSize. Degenerate
// volumes (no positive extent) get scale 0 and map every index to the
// origin.
func NewFrame(dim [3]int, voxelSize [3]float64, worldSize float64) Frame {
	if worldSize <= 0 {
		worldSize = DefaultWorldSize
	}
	maxExtent := 0.0
	for i := 0; i < 3; i++ {
		if e := float64(dim[i]) * voxelSize[i]; e > maxExtent {
			maxExtent = e
		}
	}
	f := Frame{Dim: dim, VoxelSize: voxelSize}
	if maxExtent > 0 {
		f.Scale = worldSize / maxExtent
	}
	return f
}

// WorldPos maps a voxel index to world coordinates. Fractional indices are
// fine: the mapping is affine, so interpolating in index space and mapping
// gives the same point as mapping corners and interpolating.
func (f Frame) WorldPos(x, y, z float64) Vec3 {
	return Vec3{
		(x - float64(f.Dim[0])/2) * f.VoxelSize[0] * f.Scale,
		(y - float64(f.Dim[1])/2) * f.VoxelSize[1] * f.Scale,
		(z - float64(f.Dim[2])/2) * f.VoxelSize[2] * f.Scale,
	}
}

// VoxelWorld returns the world-space size of one voxel along each axis.
func (f Frame) VoxelWorld() Vec3 {
	return Vec3{
		f.VoxelSize[0] * f.Scale,
		f.VoxelSize[1] * f.Scale,
		f.VoxelSize[2] * f.Scale,
	}
}

// Extent returns the world-space size of the whole volume along each axis.
// The largest component equals the frame's world size.
func (f Frame) Extent() Vec3 {
	return Vec3{
		float64(f.Dim[0]) * f.VoxelSize[0] * f.Scale,
		float64(f.Dim[1]) * f.VoxelSize[1] * f.Scale,
		float64(f.Dim[2]) * f.VoxelSize[2] * f.Scale,
	}
}
