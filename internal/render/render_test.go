package render

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"neurovol-viewer/internal/mathutil"
	"neurovol-viewer/internal/mesh"
)

// octahedron builds a closed 8-face mesh around the origin.
func octahedron(rx, ry, rz float64) *mesh.TriangleMesh {
	xp := mathutil.Vec3{rx, 0, 0}
	xn := mathutil.Vec3{-rx, 0, 0}
	yp := mathutil.Vec3{0, ry, 0}
	yn := mathutil.Vec3{0, -ry, 0}
	zp := mathutil.Vec3{0, 0, rz}
	zn := mathutil.Vec3{0, 0, -rz}

	m := &mesh.TriangleMesh{}
	m.AddTriangle(xp, yp, zp)
	m.AddTriangle(yp, xn, zp)
	m.AddTriangle(xn, yn, zp)
	m.AddTriangle(yn, xp, zp)
	m.AddTriangle(yp, xp, zn)
	m.AddTriangle(xn, yp, zn)
	m.AddTriangle(yn, xn, zn)
	m.AddTriangle(xp, yn, zn)
	return m
}

func pixelAt(img *image.NRGBA, x, y int) (r, g, b, a uint8) {
	i := img.PixOffset(x, y)
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
}

func TestRenderEmptyMesh(t *testing.T) {
	img := Render(&mesh.TriangleMesh{}, Options{Size: 32})
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("canvas is %dx%d, want 32x32", b.Dx(), b.Dy())
	}
	for _, p := range img.Pix {
		if p != 0 {
			t.Fatal("empty mesh produced non-transparent pixels")
		}
	}
}

func TestRenderOctahedronCoverage(t *testing.T) {
	img := Render(octahedron(1, 1, 1), Options{Size: 64, Supersample: 1})
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("canvas is %dx%d, want 64x64", b.Dx(), b.Dy())
	}
	if _, _, _, a := pixelAt(img, 32, 32); a != 0xFF {
		t.Error("silhouette center is not opaque")
	}
	if _, _, _, a := pixelAt(img, 2, 2); a != 0 {
		t.Error("background corner is not transparent")
	}

	// Faces tilted toward and away from the key light shade differently.
	upR, _, _, upA := pixelAt(img, 36, 28)
	downR, _, _, downA := pixelAt(img, 36, 36)
	if upA != 0xFF || downA != 0xFF {
		t.Fatal("expected both probe pixels inside the silhouette")
	}
	if upR == downR {
		t.Error("flat shading produced identical values on differently lit faces")
	}
}

func TestRenderViewsDiffer(t *testing.T) {
	m := octahedron(3, 1, 1)
	front := Render(m, Options{Size: 48, Preset: Preset{Azimuth: 0}})
	side := Render(m, Options{Size: 48, Preset: Preset{Azimuth: 90}})
	if bytes.Equal(front.Pix, side.Pix) {
		t.Error("rotating the view did not change the render")
	}
}

func TestRasterizeDepthOrder(t *testing.T) {
	fb := NewFrameBuffer(16, 16)
	lc := DefaultLightConfig()

	// Three coincident screen triangles at different depths.
	px := []float64{1, 14, 1, 1, 14, 1, 1, 14, 1}
	py := []float64{1, 1, 14, 1, 1, 14, 1, 1, 14}
	pz := []float64{0, 0, 0, 5, 5, 5, -5, -5, -5}

	probe := func() [4]uint8 {
		i := (4*16 + 4) * 4
		return [4]uint8{fb.Color[i], fb.Color[i+1], fb.Color[i+2], fb.Color[i+3]}
	}

	rasterizeTriangle(fb, px, py, pz, 0, 1, 2, [3]uint8{200, 30, 30}, nil, &lc)
	first := probe()
	if first[3] != 0xFF {
		t.Fatal("first triangle did not cover the probe pixel")
	}

	rasterizeTriangle(fb, px, py, pz, 3, 4, 5, [3]uint8{30, 200, 30}, nil, &lc)
	second := probe()
	if second == first {
		t.Fatal("nearer triangle did not overwrite the pixel")
	}

	rasterizeTriangle(fb, px, py, pz, 6, 7, 8, [3]uint8{30, 30, 200}, nil, &lc)
	if probe() != second {
		t.Error("farther triangle overwrote a nearer pixel")
	}

	// Outside the hypotenuse nothing was touched.
	i := (15*16 + 15) * 4
	if fb.Color[i+3] != 0 {
		t.Error("pixel outside the triangle became opaque")
	}
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.yaml")
	doc := `- name: left
  azimuth: 90
  elevation: 10
  surface: [200, 180, 160]
  exposure: 1.1
- name: top
  azimuth: 0
  elevation: 90
  flip: true
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("loaded %d presets, want 2", len(presets))
	}
	if presets[0].Azimuth != 90 || presets[0].Surface != ([3]uint8{200, 180, 160}) || presets[0].Exposure != 1.1 {
		t.Errorf("first preset = %+v", presets[0])
	}
	if !presets[1].Flip {
		t.Errorf("second preset = %+v, want Flip set", presets[1])
	}

	if p, ok := FindPreset(presets, "top"); !ok || p.Name != "top" {
		t.Errorf("FindPreset(top) = %+v, %v", p, ok)
	}
	if p, ok := FindPreset(presets, "missing"); ok || p.Name != "left" {
		t.Errorf("FindPreset(missing) = %+v, %v; want first preset and false", p, ok)
	}
	if p, ok := FindPreset(presets, ""); !ok || p.Name != "left" {
		t.Errorf("FindPreset(\"\") = %+v, %v; want first preset", p, ok)
	}
}

func TestLoadPresetsRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("[]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPresets(path); err == nil {
		t.Error("empty preset list accepted")
	}
}

func TestSampleMatcap(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	set := func(x, y int, r, g, b uint8) {
		i := tex.PixOffset(x, y)
		tex.Pix[i], tex.Pix[i+1], tex.Pix[i+2], tex.Pix[i+3] = r, g, b, 0xFF
	}
	set(0, 0, 255, 0, 0)
	set(1, 0, 0, 255, 0)
	set(0, 1, 0, 0, 255)
	set(1, 1, 255, 255, 255)

	if r, g, b := SampleMatcap(tex, 0, 0); r != 128 || g != 128 || b != 128 {
		t.Errorf("center sample = (%d,%d,%d), want (128,128,128)", r, g, b)
	}
	if r, g, b := SampleMatcap(tex, -1, 0); r != 128 || g != 0 || b != 128 {
		t.Errorf("left sample = (%d,%d,%d), want (128,0,128)", r, g, b)
	}
	if r, g, b := SampleMatcap(tex, 0, 1); r != 128 || g != 128 || b != 0 {
		t.Errorf("up sample = (%d,%d,%d), want (128,128,0)", r, g, b)
	}
}

func TestRenderMatcapTint(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			i := tex.PixOffset(x, y)
			tex.Pix[i], tex.Pix[i+1], tex.Pix[i+2], tex.Pix[i+3] = 40, 200, 60, 0xFF
		}
	}

	img := Render(octahedron(1, 1, 1), Options{Size: 64, Matcap: tex})
	r, g, b, a := pixelAt(img, 32, 32)
	if a != 0xFF {
		t.Fatal("matcap render center not opaque")
	}
	if g <= r || g <= b {
		t.Errorf("matcap tint lost: got (%d,%d,%d)", r, g, b)
	}
}
