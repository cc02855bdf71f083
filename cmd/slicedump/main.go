package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"

	"neurovol-viewer/internal/nifti"
	"neurovol-viewer/internal/slicer"
)

func main() {
	planeName := flag.String("plane", "axial", "Slice plane: axial, coronal or sagittal")
	index := flag.Int("index", -1, "Slice index (default: middle slice)")
	all := flag.Bool("all", false, "Dump every slice of the plane")
	level := flag.Float64("level", 0, "Window level in [0,1] (default: suggested from the volume)")
	width := flag.Float64("width", 0, "Window width in (0,1] (default: suggested from the volume)")
	format := flag.String("format", "png", "Output format: png or webp")
	outDir := flag.String("out", ".", "Output directory")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: slicedump [flags] <file.nii[.gz]>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *format != "png" && *format != "webp" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *format)
		os.Exit(2)
	}

	path := flag.Arg(0)
	vol, err := nifti.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range vol.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	plane, err := slicer.ParsePlane(*planeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	win := slicer.DefaultWindow
	if l, w := vol.SuggestWindow(); w > 0 {
		win = slicer.Window{Level: l, Width: w}
	}
	if *level > 0 {
		win.Level = *level
	}
	if *width > 0 {
		win.Width = *width
	}

	count := plane.Count(vol)
	first, last := *index, *index
	if *all {
		first, last = 0, count-1
	} else if *index < 0 {
		first, last = count/2, count/2
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stem := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".gz"), ".nii")
	written := 0
	for i := first; i <= last; i++ {
		img, err := slicer.Extract(vol, slicer.Request{Plane: plane, Index: i, Window: win})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		name := fmt.Sprintf("%s_%s_%03d.%s", stem, plane, i, *format)
		if err := writeImage(filepath.Join(*outDir, name), *format, img); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		written++
	}
	fmt.Printf("Wrote %d %s slice(s) to %s (window level %.3f width %.3f)\n",
		written, plane, *outDir, win.Level, win.Width)
}

func writeImage(path, format string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if format == "webp" {
		err = nativewebp.Encode(f, img, nil)
	} else {
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
