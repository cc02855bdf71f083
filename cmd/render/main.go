package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"neurovol-viewer/internal/batch"
	"neurovol-viewer/internal/config"
	"neurovol-viewer/internal/render"
	"neurovol-viewer/internal/slicer"
	"neurovol-viewer/internal/store"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	testN := flag.Int("test", 0, "Convert only first N volumes for testing")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	dataDir := flag.String("data", "", "Path to base directory (default: auto-detect)")
	outputDir := flag.String("output", "", "Output directory (default: <base>/renders)")
	quality := flag.Int("quality", 0, "WebP quality 1-100 (default: 90)")
	threshold := flag.Float64("threshold", -1, "Isosurface threshold in [0,1] (default: 0.25)")
	view := flag.String("view", "", "Preview camera preset (default: first preset)")
	stl := flag.Bool("stl", false, "Also write surface.stl per volume")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		DataDir:   *dataDir,
		OutputDir: *outputDir,
		Threshold: *threshold,
		Quality:   *quality,
		Workers:   *workers,
	})

	if cfg.BaseDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find data directory. Use -data flag or config.json.")
		os.Exit(1)
	}

	// Discover volumes
	index := store.BuildIndex(cfg.DataDir)
	names := index.Names()

	// Limit for testing
	if *testN > 0 && *testN < len(names) {
		names = names[:*testN]
	}

	if len(names) == 0 {
		fmt.Println("No volumes to convert.")
		os.Exit(0)
	}

	// Camera preset + optional matcap
	presets := render.DefaultPresets()
	if cfg.Presets != "" {
		loaded, err := render.LoadPresets(cfg.Presets)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading presets: %v\n", err)
			os.Exit(1)
		}
		presets = loaded
	}
	presetName := *view
	if presetName == "" {
		presetName = cfg.Preset
	}
	preset, ok := render.FindPreset(presets, presetName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Warning: unknown view %q, using %q\n", presetName, preset.Name)
	}

	var matcap *image.NRGBA
	matcapPath := preset.Matcap
	if matcapPath == "" {
		matcapPath = cfg.Matcap
	}
	if matcapPath != "" {
		m, err := render.LoadMatcap(matcapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: matcap load: %v\n", err)
		} else {
			matcap = m
		}
	}

	// Print summary
	mode := ""
	if *testN > 0 {
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("NIfTI Volume Converter → GLB/WebP%s\n", mode)
	fmt.Printf("Volumes: %d, Workers: %d\n", len(names), cfg.Workers)
	fmt.Printf("Threshold: %.2f, Stride: %d, View: %s\n", cfg.Threshold, cfg.Stride, preset.Name)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		Volumes:     store.NewStore(index),
		OutputDir:   cfg.OutputDir,
		Threshold:   cfg.Threshold,
		Stride:      cfg.Stride,
		WorldSize:   cfg.WorldSize,
		Window:      slicer.Window{Level: cfg.WindowLevel, Width: cfg.WindowWidth},
		WriteSTL:    *stl,
		Preset:      preset,
		Matcap:      matcap,
		RenderSize:  cfg.RenderSize,
		Supersample: cfg.Supersample,
		WebPQuality: cfg.WebPQuality,
		Workers:     cfg.Workers,
	}

	results := batch.Run(batchCfg, names)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Converted: %d/%d\n", success, len(names))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

type Result = batch.Result
