package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"neurovol-viewer/internal/mathutil"
)

// EncodeSTL writes the mesh in binary STL form: an 80-byte header, a uint32
// triangle count, then 50 bytes per triangle (normal, three vertices, and
// an attribute word).
func EncodeSTL(wr io.Writer, m *TriangleMesh) error {
	w := bufio.NewWriter(wr)

	var header [80]byte
	copy(header[:], "neurovol-viewer isosurface")
	w.Write(header[:])
	binary.Write(w, binary.LittleEndian, uint32(m.NumTriangles()))
	for i := 0; i < m.NumTriangles(); i++ {
		n := m.FaceNormal(i)
		a, b, c := m.Triangle(i)
		for _, v := range [4]mathutil.Vec3{n, a, b, c} {
			binary.Write(w, binary.LittleEndian, [3]float32{
				float32(v[0]), float32(v[1]), float32(v[2]),
			})
		}
		binary.Write(w, binary.LittleEndian, uint16(0))
	}

	// bufio errors are sticky; Flush reports the first one.
	return w.Flush()
}

// SaveSTL writes the mesh as a binary STL file.
func SaveSTL(path string, m *TriangleMesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mesh: create %s: %w", path, err)
	}
	if err := EncodeSTL(f, m); err != nil {
		f.Close()
		return fmt.Errorf("mesh: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("mesh: close %s: %w", path, err)
	}
	return nil
}
