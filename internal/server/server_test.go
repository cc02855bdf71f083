package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"golang.org/x/image/webp"

	"neurovol-viewer/internal/isosurface"
	"neurovol-viewer/internal/nifti"
	"neurovol-viewer/internal/store"
)

type fakeCatalog struct {
	vols map[string]*nifti.Volume
	errs map[string]error
}

func (c *fakeCatalog) Resolve(name string) (*nifti.Volume, error) {
	if err, ok := c.errs[name]; ok {
		return nil, err
	}
	if v, ok := c.vols[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("store: %w %q", store.ErrUnknownVolume, name)
}

func (c *fakeCatalog) Names() []string {
	names := make([]string, 0, len(c.vols))
	for n := range c.vols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// blockVolume is a 4x4x4 field: background 200 with a 2x2x2 block of 50.
func blockVolume(tb testing.TB) *nifti.Volume {
	tb.Helper()
	data := make([]float32, 64)
	for i := range data {
		data[i] = 200
	}
	for z := 1; z <= 2; z++ {
		for y := 1; y <= 2; y++ {
			for x := 1; x <= 2; x++ {
				data[x+y*4+z*16] = 50
			}
		}
	}
	vol, err := nifti.NewVolume([3]int{4, 4, 4}, [3]float64{1, 1, 1}, data)
	if err != nil {
		tb.Fatalf("NewVolume: %v", err)
	}
	return vol
}

func sphereVolume(tb testing.TB, n int) *nifti.Volume {
	tb.Helper()
	data := make([]float32, n*n*n)
	c := float64(n-1) / 2
	r := float64(n) * 0.38
	i := 0
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx, dy, dz := float64(x)-c, float64(y)-c, float64(z)-c
				data[i] = float32(r - math.Sqrt(dx*dx+dy*dy+dz*dz))
				i++
			}
		}
	}
	vol, err := nifti.NewVolume([3]int{n, n, n}, [3]float64{1, 1, 1}, data)
	if err != nil {
		tb.Fatalf("NewVolume: %v", err)
	}
	return vol
}

func newTestServer(tb testing.TB) *Server {
	tb.Helper()
	return New(&fakeCatalog{vols: map[string]*nifti.Volume{"brain": blockVolume(tb)}}, Options{})
}

func get(s *Server, url string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	return rr
}

func TestVolumesEndpoint(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rr.Code)
	}
	var body struct {
		Volumes []string `json:"volumes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(body.Volumes) != 1 || body.Volumes[0] != "brain" {
		t.Errorf("volumes = %v, want [brain]", body.Volumes)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store, no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestInfoEndpoint(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/info")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var info volumeInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if info.Dim != [3]int{4, 4, 4} || info.Datatype != "float32" {
		t.Errorf("info = %+v", info)
	}
	if info.Min != 50 || info.Max != 200 {
		t.Errorf("range = %v..%v, want 50..200", info.Min, info.Max)
	}
	if info.WindowLevel <= 0 || info.WindowLevel > 1 || info.WindowWidth <= 0 || info.WindowWidth > 1 {
		t.Errorf("suggested window %v/%v outside (0,1]", info.WindowLevel, info.WindowWidth)
	}
}

func TestInfoUnknownVolume(t *testing.T) {
	if rr := get(newTestServer(t), "/api/volumes/ghost/info"); rr.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rr.Code)
	}
}

func TestMalformedVolumeIs422(t *testing.T) {
	catalog := &fakeCatalog{
		errs: map[string]error{
			"corrupt": fmt.Errorf("parse: %w", nifti.ErrMalformed),
		},
	}
	s := New(catalog, Options{})
	if rr := get(s, "/api/volumes/corrupt/info"); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status %d, want 422", rr.Code)
	}
}

func TestSliceEndpointPNG(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/slice/axial/2")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rr.Body)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("slice is %dx%d, want 4x4", b.Dx(), b.Dy())
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 255 {
		t.Errorf("background pixel = %d, want 255", r>>8)
	}
	if r, _, _, _ := img.At(1, 1).RGBA(); r>>8 != 0 {
		t.Errorf("block pixel = %d, want 0", r>>8)
	}
}

func TestSliceEndpointWebP(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/slice/coronal/1?format=webp")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := webp.Decode(rr.Body)
	if err != nil {
		t.Fatalf("webp decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("slice is %dx%d, want 4x4", b.Dx(), b.Dy())
	}
}

func TestSliceEndpointRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	for _, url := range []string{
		"/api/volumes/brain/slice/diagonal/0",
		"/api/volumes/brain/slice/axial/99",
		"/api/volumes/brain/slice/axial/x",
		"/api/volumes/brain/slice/axial/0?level=abc",
		"/api/volumes/brain/slice/axial/0?format=bmp",
	} {
		if rr := get(s, url); rr.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", url, rr.Code)
		}
	}
}

func TestSurfaceGLB(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/surface?threshold=0.5&stride=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "model/gltf-binary" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := rr.Body.Bytes(); len(body) < 12 || !bytes.HasPrefix(body, []byte("glTF")) {
		t.Error("body does not start with the glTF binary magic")
	}
}

func TestSurfaceSTL(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/surface?threshold=0.5&stride=1&format=stl")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "model/stl" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.Bytes()
	if len(body) < 84 || (len(body)-84)%50 != 0 {
		t.Fatalf("body length %d is not a valid binary STL layout", len(body))
	}
}

func TestSurfaceEmptyMeshIs204(t *testing.T) {
	if rr := get(newTestServer(t), "/api/volumes/brain/surface?threshold=1"); rr.Code != http.StatusNoContent {
		t.Errorf("status %d, want 204", rr.Code)
	}
}

func TestSurfaceRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	for _, url := range []string{
		"/api/volumes/brain/surface?threshold=1.5",
		"/api/volumes/brain/surface?threshold=abc",
		"/api/volumes/brain/surface?stride=abc",
		"/api/volumes/brain/surface?format=obj",
	} {
		if rr := get(s, url); rr.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", url, rr.Code)
		}
	}
}

func TestSurfaceSupersededIs409(t *testing.T) {
	catalog := &fakeCatalog{vols: map[string]*nifti.Volume{"big": sphereVolume(t, 160)}}
	s := New(catalog, Options{})

	// A 160-cubed field keeps the first extraction in flight while the
	// second request arrives and preempts it.
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- get(s, "/api/volumes/big/surface?threshold=0.5&stride=1")
	}()
	time.Sleep(10 * time.Millisecond)

	second := get(s, "/api/volumes/big/surface?threshold=0.5&stride=1")
	if second.Code != http.StatusOK {
		t.Fatalf("second request status %d: %s", second.Code, second.Body.String())
	}
	if rr := <-first; rr.Code != http.StatusConflict {
		t.Errorf("superseded request status %d, want 409", rr.Code)
	}
}

func TestSchedulerSharedAcrossAliases(t *testing.T) {
	vol := blockVolume(t)
	catalog := &fakeCatalog{vols: map[string]*nifti.Volume{"brain": vol}}
	s := New(catalog, Options{})

	// A pass held open on the volume's slot is preempted by an HTTP
	// request resolving to the same volume.
	started := make(chan struct{})
	release := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := s.scheduler(vol).Extract(context.Background(), vol, vol.Frame(2),
			isosurface.Request{Threshold: 0.5, Stride: 1},
			func(float64) {
				select {
				case <-started:
				default:
					close(started)
				}
				<-release
			})
		errCh <- err
	}()
	<-started

	if rr := get(s, "/api/volumes/brain/surface?threshold=0.5&stride=1"); rr.Code != http.StatusOK {
		t.Fatalf("preempting request status %d: %s", rr.Code, rr.Body.String())
	}
	close(release)

	if err := <-errCh; !errors.Is(err, isosurface.ErrSuperseded) {
		t.Errorf("held pass err = %v, want ErrSuperseded", err)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/preview?threshold=0.5&stride=1&size=64")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := webp.Decode(rr.Body)
	if err != nil {
		t.Fatalf("webp decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("preview is %dx%d, want 64x64", b.Dx(), b.Dy())
	}
}

func TestPreviewUnknownViewFallsBack(t *testing.T) {
	rr := get(newTestServer(t), "/api/volumes/brain/preview?threshold=0.5&stride=1&size=32&view=nope")
	if rr.Code != http.StatusOK {
		t.Errorf("status %d, want 200 with fallback view", rr.Code)
	}
}

func TestPreviewRejectsBadSize(t *testing.T) {
	s := newTestServer(t)
	for _, url := range []string{
		"/api/volumes/brain/preview?size=4",
		"/api/volumes/brain/preview?size=9999",
	} {
		if rr := get(s, url); rr.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", url, rr.Code)
		}
	}
}

func TestStaticServingNoStore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>viewer</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(&fakeCatalog{}, Options{StaticDir: dir})

	rr := get(s, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("viewer")) {
		t.Error("static index not served")
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store, no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if rr.Header().Get("Pragma") != "no-cache" || rr.Header().Get("Expires") != "0" {
		t.Error("legacy no-cache headers missing")
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/volumes", nil)
	req.Header.Set("Origin", "http://viewer.example")
	s.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
