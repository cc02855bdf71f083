package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"neurovol-viewer/internal/isosurface"
	"neurovol-viewer/internal/mesh"
	"neurovol-viewer/internal/postprocess"
	"neurovol-viewer/internal/render"
	"neurovol-viewer/internal/slicer"
	"neurovol-viewer/internal/store"

	"github.com/HugoSmits86/nativewebp"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Volumes   store.Resolver
	OutputDir string

	Threshold float64
	Stride    int
	WorldSize float64
	Window    slicer.Window
	WriteSTL  bool

	Preset      render.Preset
	Matcap      *image.NRGBA
	RenderSize  int
	Supersample int
	WebPQuality int
	Workers     int
}

// Result holds the outcome of processing one volume.
type Result struct {
	Name    string
	Success bool
	Error   string
	Entry   ManifestEntry // zero unless Success
}

// Run processes all volumes using a worker pool.
func Run(cfg Config, names []string) []Result {
	total := len(names)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					fmt.Printf("  [%d/%d] %.1fs/volume\n", p, total, elapsed/float64(p))
				}
			}
		}
	}()

	// Worker pool
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	volChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range volChan {
				results[idx] = processVolume(cfg, names[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range names {
		volChan <- i
	}
	close(volChan)

	wg.Wait()
	close(done)

	return results
}

func processVolume(cfg Config, name string) Result {
	vol, err := cfg.Volumes.Resolve(name)
	if err != nil {
		return Result{Name: name, Error: err.Error()}
	}

	outDir := filepath.Join(cfg.OutputDir, name)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Result{Name: name, Error: err.Error()}
	}

	// Mid-index slice for each anatomical plane
	var slices [3]string
	for i, plane := range slicer.Planes {
		img, err := slicer.Extract(vol, slicer.Request{
			Plane:  plane,
			Index:  plane.Count(vol) / 2,
			Window: cfg.Window,
		})
		if err != nil {
			return Result{Name: name, Error: err.Error()}
		}
		rel := plane.String() + ".webp"
		if err := encodeWebP(filepath.Join(outDir, rel), img); err != nil {
			return Result{Name: name, Error: err.Error()}
		}
		slices[i] = rel
	}

	// Isosurface
	frame := vol.Frame(cfg.WorldSize)
	m, err := isosurface.Extract(context.Background(), vol, frame,
		isosurface.Request{Threshold: cfg.Threshold, Stride: cfg.Stride}, nil)
	if err != nil {
		return Result{Name: name, Error: err.Error()}
	}

	if err := mesh.SaveGLB(filepath.Join(outDir, "surface.glb"), m); err != nil {
		return Result{Name: name, Error: fmt.Sprintf("GLB: %v", err)}
	}
	if cfg.WriteSTL {
		if err := mesh.SaveSTL(filepath.Join(outDir, "surface.stl"), m); err != nil {
			return Result{Name: name, Error: fmt.Sprintf("STL: %v", err)}
		}
	}

	// Preview render
	img := render.Render(m, render.Options{
		Size:        cfg.RenderSize,
		Supersample: cfg.Supersample,
		Preset:      cfg.Preset,
		Matcap:      cfg.Matcap,
	})
	// Noise specks vanish; anatomy splits (a severed brainstem at low
	// thresholds) stay well above this ratio.
	img = postprocess.Despeckle(img, 0.005)
	img = postprocess.FitCanvas(img, cfg.RenderSize, 0.90)
	if cfg.Preset.Flip {
		img = postprocess.FlipHorizontal(img)
	}

	if err := encodeWebP(filepath.Join(outDir, "preview.webp"), img); err != nil {
		return Result{Name: name, Error: fmt.Sprintf("preview: %v", err)}
	}

	entry := ManifestEntry{
		Name:      name,
		Dim:       vol.Header.Dim,
		VoxelSize: vol.Header.VoxelSize,
		Datatype:  vol.Header.Datatype.String(),
		Min:       vol.Min,
		Max:       vol.Max,
		Triangles: m.NumTriangles(),
		Surface:   name + "/surface.glb",
		Preview:   name + "/preview.webp",
		Slices:    slices,
		Warnings:  vol.Warnings,
	}
	return Result{Name: name, Success: true, Entry: entry}
}

func encodeWebP(path string, img *image.NRGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("WebP encode: %w", err)
	}
	return f.Close()
}
