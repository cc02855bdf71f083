package mesh

import (
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"neurovol-viewer/internal/mathutil"
)

// SaveGLB writes the mesh as a binary glTF file with flat per-face normals
// and a single matte material.
func SaveGLB(path string, m *TriangleMesh) error {
	if m.NumTriangles() == 0 {
		return fmt.Errorf("mesh: refusing to write empty mesh to %s", path)
	}
	if err := gltf.SaveBinary(glbDocument(m), path); err != nil {
		return fmt.Errorf("mesh: save %s: %w", path, err)
	}
	return nil
}

// EncodeGLB streams the mesh as binary glTF.
func EncodeGLB(w io.Writer, m *TriangleMesh) error {
	if m.NumTriangles() == 0 {
		return fmt.Errorf("mesh: refusing to encode empty mesh")
	}
	return gltf.NewEncoder(w).Encode(glbDocument(m))
}

func glbDocument(m *TriangleMesh) *gltf.Document {
	positions := make([][3]float32, len(m.Positions))
	for i, p := range m.Positions {
		positions[i] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
	}
	flat := m.FlatNormals()
	normals := make([][3]float32, len(flat))
	for i, n := range flat {
		normals[i] = [3]float32{float32(n[0]), float32(n[1]), float32(n[2])}
	}
	indices := make([]uint32, len(positions))
	for i := range indices {
		indices[i] = uint32(i)
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "neurovol-viewer"
	prim := &gltf.Primitive{
		Attributes: map[string]int{
			gltf.POSITION: modeler.WritePosition(doc, positions),
			gltf.NORMAL:   modeler.WriteNormal(doc, normals),
		},
		Indices:  gltf.Index(modeler.WriteIndices(doc, indices)),
		Material: gltf.Index(0),
	}
	doc.Materials = []*gltf.Material{{
		Name: "surface",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{0.85, 0.82, 0.79, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(0.9),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{Name: "isosurface", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: "isosurface", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

// LoadGLB reads a .glb or .gltf scene and flattens every triangle primitive
// through its node transform chain into one triangle soup.
func LoadGLB(path string) (*TriangleMesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: open %s: %w", path, err)
	}
	out := &TriangleMesh{}
	for _, idx := range sceneRoots(doc) {
		if err := appendNode(doc, idx, mathutil.Mat4Identity(), out, 0); err != nil {
			return nil, fmt.Errorf("mesh: %s: %w", path, err)
		}
	}
	if out.NumTriangles() == 0 {
		return nil, fmt.Errorf("mesh: %s carries no triangle geometry", path)
	}
	return out, nil
}

func sceneRoots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	// No scene at all: treat parentless nodes as roots.
	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// maxNodeDepth guards against cyclic node graphs in hostile files.
const maxNodeDepth = 64

func appendNode(doc *gltf.Document, idx int, parent mathutil.Mat4, out *TriangleMesh, depth int) error {
	if idx < 0 || idx >= len(doc.Nodes) || depth > maxNodeDepth {
		return nil
	}
	n := doc.Nodes[idx]
	world := mathutil.Mat4Mul(parent, nodeTransform(n))
	if n.Mesh != nil && *n.Mesh < len(doc.Meshes) {
		for _, prim := range doc.Meshes[*n.Mesh].Primitives {
			if err := appendPrimitive(doc, prim, world, out); err != nil {
				return err
			}
		}
	}
	for _, c := range n.Children {
		if err := appendNode(doc, c, world, out, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func nodeTransform(n *gltf.Node) mathutil.Mat4 {
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault() // x, y, z, w
	s := n.ScaleOrDefault()
	lin := mathutil.Mat3Mul(
		mathutil.QuatToMat3(mathutil.Quat{r[0], r[1], r[2], r[3]}),
		mathutil.Mat3Diag(s[0], s[1], s[2]),
	)
	return mathutil.FromMat3Translation(lin, mathutil.Vec3{t[0], t[1], t[2]})
}

func appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, world mathutil.Mat4, out *TriangleMesh) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}
	ident := world.IsIdentity()
	at := func(i int) mathutil.Vec3 {
		p := positions[i]
		v := mathutil.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
		if ident {
			return v
		}
		return world.MulPoint(v)
	}
	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return fmt.Errorf("indices: %w", err)
		}
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := int(indices[i]), int(indices[i+1]), int(indices[i+2])
			if a >= len(positions) || b >= len(positions) || c >= len(positions) {
				continue
			}
			out.AddTriangle(at(a), at(b), at(c))
		}
		return nil
	}
	for i := 0; i+2 < len(positions); i += 3 {
		out.AddTriangle(at(i), at(i+1), at(i+2))
	}
	return nil
}
