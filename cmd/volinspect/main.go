package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"neurovol-viewer/internal/nifti"
)

const histBins = 24

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: volinspect <file.nii[.gz]> ...")
		os.Exit(2)
	}
	failed := 0
	for _, path := range os.Args[1:] {
		if len(os.Args) > 2 {
			fmt.Printf("== %s ==\n", path)
		}
		if err := inspect(path); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func inspect(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	vol, err := nifti.ParseFile(path)
	if err != nil {
		return err
	}
	h := vol.Header

	fmt.Printf("File: %s (%s on disk)\n", path, humanize.IBytes(uint64(fi.Size())))
	fmt.Printf("Magic: %q, datatype: %s (%d-bit), ndim: %d\n", h.Magic, h.Datatype, h.Bitpix, h.NDim)
	fmt.Printf("Dim: %d x %d x %d (%s voxels, %s decoded)\n",
		h.Dim[0], h.Dim[1], h.Dim[2],
		humanize.Comma(int64(vol.NumVoxels())),
		humanize.IBytes(uint64(vol.NumVoxels()*4)))
	fmt.Printf("Voxel: %.3f x %.3f x %.3f mm", h.VoxelSize[0], h.VoxelSize[1], h.VoxelSize[2])
	phys := h.PhysicalSize()
	fmt.Printf("  ->  extent %.1f x %.1f x %.1f mm\n", phys[0], phys[1], phys[2])
	fmt.Printf("Offset: %d, scl_slope: %g, scl_inter: %g, qform: %d, sform: %d\n",
		h.VoxOffset, h.SclSlope, h.SclInter, h.QformCode, h.SformCode)
	if h.Descrip != "" {
		fmt.Printf("Descrip: %q\n", h.Descrip)
	}

	s := vol.ComputeStats()
	fmt.Printf("Intensity: [%g, %g], mean %.2f, stddev %.2f\n", vol.Min, vol.Max, s.Mean, s.StdDev)
	fmt.Printf("Percentiles: p02 %.2f, median %.2f, p98 %.2f\n", s.P02, s.Median, s.P98)
	level, width := vol.SuggestWindow()
	fmt.Printf("Suggested window: level %.3f, width %.3f\n", level, width)

	printHistogram(vol)

	for _, w := range vol.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}

// printHistogram draws the intensity distribution as bar rows, one per
// bin, scaled so the tallest bin spans 50 columns.
func printHistogram(vol *nifti.Volume) {
	counts := vol.Histogram(histBins)
	peak := 0.0
	for _, c := range counts {
		if c > peak {
			peak = c
		}
	}
	if peak == 0 {
		return
	}
	fmt.Println("Histogram:")
	span := (float64(vol.Max) - float64(vol.Min)) / histBins
	for i, c := range counts {
		lo := float64(vol.Min) + span*float64(i)
		bar := strings.Repeat("#", int(c/peak*50))
		fmt.Printf("  %10.1f |%s %s\n", lo, bar, humanize.Comma(int64(c)))
	}
}
