package nifti

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrDecompress marks a gzip stream that could not be inflated.
var ErrDecompress = errors.New("corrupt gzip stream")

// gzipMagic starts every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// MaybeDecompress inflates buf if it carries the gzip signature and returns
// it unchanged otherwise. The parser needs one contiguous buffer, so the
// stream is read to completion; a short or corrupt stream is an error, never
// a silent pass-through of compressed bytes.
func MaybeDecompress(buf []byte) ([]byte, error) {
	if len(buf) < 2 || !bytes.Equal(buf[:2], gzipMagic) {
		return buf, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("nifti: %w: %v", ErrDecompress, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("nifti: %w: %v", ErrDecompress, err)
	}
	return out, nil
}
