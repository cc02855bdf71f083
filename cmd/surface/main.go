package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"neurovol-viewer/internal/isosurface"
	"neurovol-viewer/internal/mesh"
	"neurovol-viewer/internal/nifti"
)

func main() {
	threshold := flag.Float64("threshold", 0.25, "Isosurface threshold on normalized intensity, in [0,1]")
	stride := flag.Int("stride", isosurface.DefaultStride, "Sampling step per axis")
	worldSize := flag.Float64("world", 2, "Longest world-space edge of the volume box")
	output := flag.String("o", "", "Output path; .glb or .stl (default: <volume>.glb)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: surface [flags] <file.nii[.gz]>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	out := *output
	if out == "" {
		base := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".gz"), ".nii")
		out = base + ".glb"
	}
	ext := strings.ToLower(filepath.Ext(out))
	if ext != ".glb" && ext != ".stl" {
		fmt.Fprintf(os.Stderr, "Error: output %q must end in .glb or .stl\n", out)
		os.Exit(2)
	}

	vol, err := nifti.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range vol.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	start := time.Now()
	m, err := isosurface.Extract(context.Background(), vol, vol.Frame(*worldSize),
		isosurface.Request{Threshold: *threshold, Stride: *stride},
		func(fraction float64) {
			fmt.Fprintf(os.Stderr, "\rExtracting... %3.0f%%", fraction*100)
		})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m.NumTriangles() == 0 {
		fmt.Fprintf(os.Stderr, "Error: no surface crosses threshold %.2f\n", *threshold)
		os.Exit(1)
	}

	if ext == ".stl" {
		err = mesh.SaveSTL(out, m)
	} else {
		err = mesh.SaveGLB(out, m)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d triangles in %.1fs (threshold %.2f, stride %d)\n",
		out, m.NumTriangles(), time.Since(start).Seconds(), *threshold, *stride)
}
