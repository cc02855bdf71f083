package nifti

import (
	"fmt"

	"neurovol-viewer/internal/mathutil"
)

// Datatype is the on-disk sample encoding code for the voxel body.
type Datatype int16

// Datatype codes from the NIfTI-1 standard. Codes outside this set decode
// as uint8 with a warning.
const (
	DTUint8   Datatype = 2
	DTInt16   Datatype = 4
	DTInt32   Datatype = 8
	DTFloat32 Datatype = 16
	DTFloat64 Datatype = 64
	DTInt8    Datatype = 256
	DTUint16  Datatype = 512
)

// SampleSize returns the byte width of one stored sample, or 0 for
// unrecognized codes.
func (d Datatype) SampleSize() int {
	switch d {
	case DTUint8, DTInt8:
		return 1
	case DTInt16, DTUint16:
		return 2
	case DTInt32, DTFloat32:
		return 4
	case DTFloat64:
		return 8
	}
	return 0
}

func (d Datatype) String() string {
	switch d {
	case DTUint8:
		return "uint8"
	case DTInt16:
		return "int16"
	case DTInt32:
		return "int32"
	case DTFloat32:
		return "float32"
	case DTFloat64:
		return "float64"
	case DTInt8:
		return "int8"
	case DTUint16:
		return "uint16"
	}
	return fmt.Sprintf("unknown(%d)", int16(d))
}

// Header carries the subset of NIfTI-1 header fields the viewer consumes.
// Field layout and conventions follow the nifti1.h reference.
type Header struct {
	Magic     string     // "n+1" (single file) or "ni1" (header/image pair)
	NDim      int        // declared dimension count, 1..7
	Dim       [3]int     // voxel counts along x, y, z
	VoxelSize [3]float64 // physical spacing in mm, always positive
	Datatype  Datatype
	Bitpix    int16
	VoxOffset int64 // resolved byte offset of the voxel body
	SclSlope  float64
	SclInter  float64
	QformCode int16
	SformCode int16
	Descrip   string
}

// PhysicalSize returns the scan extent in mm along each axis.
func (h Header) PhysicalSize() [3]float64 {
	return [3]float64{
		float64(h.Dim[0]) * h.VoxelSize[0],
		float64(h.Dim[1]) * h.VoxelSize[1],
		float64(h.Dim[2]) * h.VoxelSize[2],
	}
}

// Volume is an immutable scalar field decoded from one NIfTI file. Data
// holds scaled samples (value*slope + inter) with X fastest:
// index = x + y*nx + z*nx*ny. For 4D+ files only the first volume is kept.
//
// Volumes are safe for concurrent read-only sampling.
type Volume struct {
	Header Header
	Data   []float32
	Min    float32
	Max    float32

	// Warnings lists non-fatal decode degradations: unknown datatype,
	// zeroed non-finite samples, normalized voxel spacing.
	Warnings []string
}

// NewVolume wraps an in-memory scalar field, computing min/max. Intended
// for synthetic volumes; ParseFile is the on-disk path.
func NewVolume(dim [3]int, voxelSize [3]float64, data []float32) (*Volume, error) {
	n := dim[0] * dim[1] * dim[2]
	if n <= 0 || len(data) != n {
		return nil, fmt.Errorf("nifti: field length %d does not match dims %v", len(data), dim)
	}
	for i, s := range voxelSize {
		if s <= 0 {
			return nil, fmt.Errorf("nifti: non-positive voxel size %v on axis %d", s, i)
		}
	}
	v := &Volume{
		Header: Header{
			Magic:     "n+1",
			NDim:      3,
			Dim:       dim,
			VoxelSize: voxelSize,
			Datatype:  DTFloat32,
			Bitpix:    32,
			SclSlope:  1,
		},
		Data: data,
	}
	v.computeRange()
	return v, nil
}

func (v *Volume) computeRange() {
	v.Min, v.Max = v.Data[0], v.Data[0]
	for _, s := range v.Data[1:] {
		if s < v.Min {
			v.Min = s
		}
		if s > v.Max {
			v.Max = s
		}
	}
}

// NumVoxels returns the sample count of the 3D field.
func (v *Volume) NumVoxels() int {
	return v.Header.Dim[0] * v.Header.Dim[1] * v.Header.Dim[2]
}

// At returns the scaled sample at (x, y, z), or 0 for out-of-range
// coordinates. Cell walks and slice edges probe next to the grid boundary,
// so the zero sentinel keeps those callers branch-free.
func (v *Volume) At(x, y, z int) float32 {
	d := v.Header.Dim
	if x < 0 || y < 0 || z < 0 || x >= d[0] || y >= d[1] || z >= d[2] {
		return 0
	}
	return v.Data[x+y*d[0]+z*d[0]*d[1]]
}

// Normalized returns the sample mapped into [0,1] by the global min/max,
// or 0 out of range. A flat volume (max == min) normalizes to 0 everywhere.
func (v *Volume) Normalized(x, y, z int) float32 {
	d := v.Header.Dim
	if x < 0 || y < 0 || z < 0 || x >= d[0] || y >= d[1] || z >= d[2] {
		return 0
	}
	if v.Max == v.Min {
		return 0
	}
	s := v.Data[x+y*d[0]+z*d[0]*d[1]]
	return (s - v.Min) / (v.Max - v.Min)
}

// Frame returns the voxel-to-world mapping for this volume. A non-positive
// worldSize selects the default.
func (v *Volume) Frame(worldSize float64) mathutil.Frame {
	return mathutil.NewFrame(v.Header.Dim, v.Header.VoxelSize, worldSize)
}
