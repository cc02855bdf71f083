package mesh

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"neurovol-viewer/internal/mathutil"
)

func unitQuad() *TriangleMesh {
	m := &TriangleMesh{}
	m.AddTriangle(
		mathutil.Vec3{0, 0, 0},
		mathutil.Vec3{1, 0, 0},
		mathutil.Vec3{1, 1, 0},
	)
	m.AddTriangle(
		mathutil.Vec3{0, 0, 0},
		mathutil.Vec3{1, 1, 0},
		mathutil.Vec3{0, 1, 0},
	)
	return m
}

func TestFaceNormal(t *testing.T) {
	m := unitQuad()
	n := m.FaceNormal(0)
	want := mathutil.Vec3{0, 0, 1}
	if n.Dist(want) > 1e-12 {
		t.Errorf("normal = %v, want %v", n, want)
	}

	flat := m.FlatNormals()
	if len(flat) != 6 {
		t.Fatalf("flat normal count %d, want 6", len(flat))
	}
	for i, fn := range flat {
		if fn.Dist(want) > 1e-12 {
			t.Errorf("flat normal %d = %v, want %v", i, fn, want)
		}
	}
}

func TestBoundsAndCenter(t *testing.T) {
	m := unitQuad()
	min, max := m.Bounds()
	if min != (mathutil.Vec3{0, 0, 0}) || max != (mathutil.Vec3{1, 1, 0}) {
		t.Errorf("bounds = %v..%v", min, max)
	}
	if c := m.Center(); c.Dist(mathutil.Vec3{0.5, 0.5, 0}) > 1e-12 {
		t.Errorf("center = %v", c)
	}

	var empty TriangleMesh
	min, max = empty.Bounds()
	if min != (mathutil.Vec3{}) || max != (mathutil.Vec3{}) {
		t.Errorf("empty bounds = %v..%v, want zeros", min, max)
	}
}

func TestSaveSTLLayout(t *testing.T) {
	m := unitQuad()
	path := filepath.Join(t.TempDir(), "quad.stl")
	if err := SaveSTL(path, m); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	want := int64(80 + 4 + 50*m.NumTriangles())
	if info.Size() != want {
		t.Errorf("file size %d, want %d", info.Size(), want)
	}
}

func TestGLBRoundTrip(t *testing.T) {
	m := unitQuad()
	path := filepath.Join(t.TempDir(), "quad.glb")
	if err := SaveGLB(path, m); err != nil {
		t.Fatal(err)
	}
	got, err := LoadGLB(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumTriangles() != m.NumTriangles() {
		t.Fatalf("triangle count %d, want %d", got.NumTriangles(), m.NumTriangles())
	}
	gmin, gmax := got.Bounds()
	wmin, wmax := m.Bounds()
	if gmin.Dist(wmin) > 1e-5 || gmax.Dist(wmax) > 1e-5 {
		t.Errorf("bounds %v..%v, want %v..%v", gmin, gmax, wmin, wmax)
	}
}

func TestSaveGLBEmptyMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.glb")
	if err := SaveGLB(path, &TriangleMesh{}); err == nil {
		t.Fatal("empty mesh should not export")
	}
}

func TestEncodeGLBStream(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeGLB(&buf, unitQuad()); err != nil {
		t.Fatalf("EncodeGLB: %v", err)
	}
	if buf.Len() < 12 || string(buf.Bytes()[:4]) != "glTF" {
		t.Errorf("stream does not start with the glTF binary magic")
	}

	if err := EncodeGLB(&buf, &TriangleMesh{}); err == nil {
		t.Error("empty mesh encoded without error")
	}
}

func TestEncodeSTLStream(t *testing.T) {
	m := unitQuad()
	var buf bytes.Buffer
	if err := EncodeSTL(&buf, m); err != nil {
		t.Fatalf("EncodeSTL: %v", err)
	}
	if want := 80 + 4 + 50*m.NumTriangles(); buf.Len() != want {
		t.Errorf("stream length %d, want %d", buf.Len(), want)
	}
	count := binary.LittleEndian.Uint32(buf.Bytes()[80:84])
	if count != uint32(m.NumTriangles()) {
		t.Errorf("triangle count field %d, want %d", count, m.NumTriangles())
	}
}

func TestLoadGLBAppliesNodeTransform(t *testing.T) {
	doc := gltf.NewDocument()
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	prim := &gltf.Primitive{
		Attributes: map[string]int{
			gltf.POSITION: modeler.WritePosition(doc, positions),
		},
		Indices: gltf.Index(modeler.WriteIndices(doc, []uint32{0, 1, 2})),
	}
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{
		{Translation: [3]float64{10, 0, 0}, Children: []int{1}},
		{Mesh: gltf.Index(0), Translation: [3]float64{0, 5, 0}},
	}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	path := filepath.Join(t.TempDir(), "nested.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}

	m, err := LoadGLB(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumTriangles() != 1 {
		t.Fatalf("triangle count %d, want 1", m.NumTriangles())
	}
	// Parent and child translations should compose.
	a, _, _ := m.Triangle(0)
	want := mathutil.Vec3{10, 5, 0}
	if a.Dist(want) > 1e-5 {
		t.Errorf("first vertex %v, want %v", a, want)
	}
}
