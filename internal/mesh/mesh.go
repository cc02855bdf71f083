package mesh

import "neurovol-viewer/internal/mathutil"

// TriangleMesh is a triangle soup: three consecutive positions per triangle,
// no shared-vertex indexing. Surface extraction emits unshared vertices
// anyway, and the soup form keeps export and rasterization simple.
type TriangleMesh struct {
	Positions []mathutil.Vec3
}

func (m *TriangleMesh) NumTriangles() int {
	return len(m.Positions) / 3
}

func (m *TriangleMesh) AddTriangle(a, b, c mathutil.Vec3) {
	m.Positions = append(m.Positions, a, b, c)
}

// Triangle returns the corners of triangle i.
func (m *TriangleMesh) Triangle(i int) (a, b, c mathutil.Vec3) {
	return m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2]
}

// FaceNormal returns the unit normal of triangle i by the right-hand rule.
// Degenerate triangles get a zero normal.
func (m *TriangleMesh) FaceNormal(i int) mathutil.Vec3 {
	a, b, c := m.Triangle(i)
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

// FlatNormals expands per-face normals to one normal per vertex.
func (m *TriangleMesh) FlatNormals() []mathutil.Vec3 {
	out := make([]mathutil.Vec3, len(m.Positions))
	for i := 0; i < m.NumTriangles(); i++ {
		n := m.FaceNormal(i)
		out[i*3], out[i*3+1], out[i*3+2] = n, n, n
	}
	return out
}

// Bounds returns the axis-aligned bounding box, or zeros for an empty mesh.
func (m *TriangleMesh) Bounds() (min, max mathutil.Vec3) {
	if len(m.Positions) == 0 {
		return
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < min[k] {
				min[k] = p[k]
			}
			if p[k] > max[k] {
				max[k] = p[k]
			}
		}
	}
	return
}

// Center returns the bounding-box midpoint.
func (m *TriangleMesh) Center() mathutil.Vec3 {
	min, max := m.Bounds()
	return min.Add(max).Scale(0.5)
}
