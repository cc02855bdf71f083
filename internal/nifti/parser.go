package nifti

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// NIfTI-1 fixed layout.
const (
	headerSize    = 348 // sizeof_hdr for a conforming little-endian file
	magicOffset   = 344
	minBodyOffset = 352 // body floor for single-file volumes
)

// ErrMalformed marks structural failures: bad magic, truncated buffer,
// implausible dimensions. Distinguish with errors.Is; I/O and gzip failures
// wrap their own causes instead.
var ErrMalformed = errors.New("malformed NIfTI input")

var (
	magicSingle = [4]byte{'n', '+', '1', 0}
	magicPair   = [4]byte{'n', 'i', '1', 0}
)

// ParseFile loads a volume from disk, inflating gzip input (.nii.gz) first.
func ParseFile(path string) (*Volume, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nifti: read: %w", err)
	}
	data, err := MaybeDecompress(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	vol, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, nil
}

// Parse decodes a NIfTI-1 buffer into a Volume. The voxel body must follow
// the header in the same buffer, at max(352, vox_offset); for "ni1"
// header/image pairs this means the caller concatenates .hdr and .img.
// Structural problems return ErrMalformed; recoverable oddities (unknown
// datatype, non-finite samples or spacing) decode best-effort and are
// reported in Volume.Warnings.
func Parse(data []byte) (*Volume, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("nifti: header truncated at %d bytes: %w", len(data), ErrMalformed)
	}
	if hs := int32(binary.LittleEndian.Uint32(data[0:])); hs != headerSize {
		return nil, fmt.Errorf("nifti: sizeof_hdr %d, want %d (big-endian or non-NIfTI input): %w", hs, headerSize, ErrMalformed)
	}
	var magic [4]byte
	copy(magic[:], data[magicOffset:])
	if magic != magicSingle && magic != magicPair {
		return nil, fmt.Errorf("nifti: unrecognized magic %q: %w", magic[:], ErrMalformed)
	}

	r := &reader{data: data, off: 40}
	var rawDim [8]int16
	for i := range rawDim {
		rawDim[i] = r.readI16()
	}
	r.skip(14) // intent_p1..p3, intent_code
	datatype := Datatype(r.readI16())
	bitpix := r.readI16()
	r.skip(2) // slice_start
	var rawPix [8]float32
	for i := range rawPix {
		rawPix[i] = r.readF32()
	}
	voxOffset := float64(r.readF32())
	slope := float64(r.readF32())
	inter := float64(r.readF32())
	r.skip(28) // slice_end through glmin
	descrip := r.readStr(80)
	r.skip(24) // aux_file
	qform := r.readI16()
	sform := r.readI16()

	ndim := int(rawDim[0])
	if ndim < 1 || ndim > 7 {
		return nil, fmt.Errorf("nifti: dim[0] = %d outside 1..7: %w", ndim, ErrMalformed)
	}

	var warnings []string

	var dim [3]int
	for i := 0; i < 3; i++ {
		if i >= ndim {
			dim[i] = 1
			continue
		}
		n := int(rawDim[i+1])
		if n < 1 {
			return nil, fmt.Errorf("nifti: dim[%d] = %d: %w", i+1, n, ErrMalformed)
		}
		dim[i] = n
	}

	var voxelSize [3]float64
	for i := 0; i < 3; i++ {
		// The sign of pixdim encodes axis flip; magnitude is spacing.
		p := math.Abs(float64(rawPix[i+1]))
		if p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			warnings = append(warnings, fmt.Sprintf("pixdim[%d] = %v, using 1mm", i+1, rawPix[i+1]))
			p = 1
		}
		voxelSize[i] = p
	}

	// A stored slope of zero means "no scaling" per the standard.
	if slope == 0 {
		slope, inter = 1, 0
	}
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(inter) || math.IsInf(inter, 0) {
		warnings = append(warnings, fmt.Sprintf("non-finite scl_slope/scl_inter %v/%v, using identity", slope, inter))
		slope, inter = 1, 0
	}

	decodeAs := datatype
	if decodeAs.SampleSize() == 0 {
		warnings = append(warnings, fmt.Sprintf("unsupported datatype %d, decoding as uint8", int16(datatype)))
		decodeAs = DTUint8
	} else if int(bitpix) != 8*decodeAs.SampleSize() {
		warnings = append(warnings, fmt.Sprintf("bitpix %d disagrees with datatype %s, trusting datatype", bitpix, decodeAs))
	}

	offset := int64(minBodyOffset)
	if !math.IsNaN(voxOffset) && !math.IsInf(voxOffset, 0) && int64(voxOffset) > offset {
		offset = int64(voxOffset)
	}

	n := dim[0] * dim[1] * dim[2]
	need := int64(n) * int64(decodeAs.SampleSize())
	if offset+need > int64(len(data)) {
		return nil, fmt.Errorf("nifti: voxel body wants %d bytes at offset %d, have %d: %w", need, offset, len(data), ErrMalformed)
	}
	body := data[offset : offset+need]

	field := decodeBody(body, decodeAs, n, slope, inter)

	// Downstream classification and interpolation assume finite samples.
	nonFinite := 0
	for i, s := range field {
		if f := float64(s); math.IsNaN(f) || math.IsInf(f, 0) {
			field[i] = 0
			nonFinite++
		}
	}
	if nonFinite > 0 {
		warnings = append(warnings, fmt.Sprintf("%d non-finite samples zeroed", nonFinite))
	}

	vol := &Volume{
		Header: Header{
			Magic:     string(magic[:3]),
			NDim:      ndim,
			Dim:       dim,
			VoxelSize: voxelSize,
			Datatype:  datatype,
			Bitpix:    bitpix,
			VoxOffset: offset,
			SclSlope:  slope,
			SclInter:  inter,
			QformCode: qform,
			SformCode: sform,
			Descrip:   descrip,
		},
		Data:     field,
		Warnings: warnings,
	}
	vol.computeRange()
	return vol, nil
}

func decodeBody(body []byte, dt Datatype, n int, slope, inter float64) []float32 {
	field := make([]float32, n)
	switch dt {
	case DTUint8:
		for i := 0; i < n; i++ {
			field[i] = float32(float64(body[i])*slope + inter)
		}
	case DTInt8:
		for i := 0; i < n; i++ {
			field[i] = float32(float64(int8(body[i]))*slope + inter)
		}
	case DTInt16:
		for i := 0; i < n; i++ {
			field[i] = float32(float64(int16(binary.LittleEndian.Uint16(body[i*2:])))*slope + inter)
		}
	case DTUint16:
		for i := 0; i < n; i++ {
			field[i] = float32(float64(binary.LittleEndian.Uint16(body[i*2:]))*slope + inter)
		}
	case DTInt32:
		for i := 0; i < n; i++ {
			field[i] = float32(float64(int32(binary.LittleEndian.Uint32(body[i*4:])))*slope + inter)
		}
	case DTFloat32:
		for i := 0; i < n; i++ {
			field[i] = float32(float64(math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:])))*slope + inter)
		}
	case DTFloat64:
		for i := 0; i < n; i++ {
			field[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:]))*slope + inter)
		}
	}
	return field
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) skip(n int) {
	r.off += n
	if r.off > len(r.data) {
		r.off = len(r.data)
	}
}

func (r *reader) readStr(n int) string {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

func (r *reader) readF32() float32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}
