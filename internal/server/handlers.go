package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"neurovol-viewer/internal/isosurface"
	"neurovol-viewer/internal/mesh"
	"neurovol-viewer/internal/postprocess"
	"neurovol-viewer/internal/render"
	"neurovol-viewer/internal/slicer"
)

func (s *Server) handleVolumes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Volumes []string `json:"volumes"`
	}{Volumes: s.catalog.Names()})
}

type volumeInfo struct {
	Name         string     `json:"name"`
	Dim          [3]int     `json:"dim"`
	VoxelSize    [3]float64 `json:"voxel_size_mm"`
	PhysicalSize [3]float64 `json:"physical_size_mm"`
	Datatype     string     `json:"datatype"`
	Min          float32    `json:"min"`
	Max          float32    `json:"max"`
	WindowLevel  float64    `json:"window_level"`
	WindowWidth  float64    `json:"window_width"`
	Warnings     []string   `json:"warnings,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	vol, ok := s.resolve(w, r)
	if !ok {
		return
	}
	level, width := vol.SuggestWindow()
	writeJSON(w, volumeInfo{
		Name:         r.PathValue("name"),
		Dim:          vol.Header.Dim,
		VoxelSize:    vol.Header.VoxelSize,
		PhysicalSize: vol.Header.PhysicalSize(),
		Datatype:     vol.Header.Datatype.String(),
		Min:          vol.Min,
		Max:          vol.Max,
		WindowLevel:  level,
		WindowWidth:  width,
		Warnings:     vol.Warnings,
	})
}

func (s *Server) handleSlice(w http.ResponseWriter, r *http.Request) {
	vol, ok := s.resolve(w, r)
	if !ok {
		return
	}
	plane, err := slicer.ParsePlane(r.PathValue("plane"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "slice index must be an integer", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	win := slicer.DefaultWindow
	var perr error
	if win.Level, perr = floatParam(q, "level", win.Level); perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}
	if win.Width, perr = floatParam(q, "width", win.Width); perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}

	img, err := slicer.Extract(vol, slicer.Request{Plane: plane, Index: index, Window: win})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := q.Get("format")
	if format == "" {
		format = "png"
	}
	writeImage(w, format, img)
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	vol, ok := s.resolve(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := isosurface.Request{Threshold: s.opt.Threshold, Stride: s.opt.Stride}
	var perr error
	if req.Threshold, perr = floatParam(q, "threshold", req.Threshold); perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}
	if req.Stride, perr = intParam(q, "stride", req.Stride); perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}
	format := q.Get("format")
	if format == "" {
		format = "glb"
	}
	if format != "glb" && format != "stl" {
		http.Error(w, fmt.Sprintf("unknown mesh format %q", format), http.StatusBadRequest)
		return
	}

	m, err := s.scheduler(vol).Extract(r.Context(), vol, vol.Frame(s.opt.WorldSize), req, nil)
	switch {
	case errors.Is(err, isosurface.ErrSuperseded):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if m.NumTriangles() == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch format {
	case "glb":
		w.Header().Set("Content-Type", "model/gltf-binary")
		if err := mesh.EncodeGLB(w, m); err != nil {
			log.Printf("surface glb: %v", err)
		}
	case "stl":
		w.Header().Set("Content-Type", "model/stl")
		if err := mesh.EncodeSTL(w, m); err != nil {
			log.Printf("surface stl: %v", err)
		}
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	vol, ok := s.resolve(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := isosurface.Request{Threshold: s.opt.Threshold, Stride: s.opt.Stride}
	var perr error
	if req.Threshold, perr = floatParam(q, "threshold", req.Threshold); perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}
	if req.Stride, perr = intParam(q, "stride", req.Stride); perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}
	size, perr := intParam(q, "size", s.opt.RenderSize)
	if perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return
	}
	if size < 16 || size > 1024 {
		http.Error(w, "size must be within [16,1024]", http.StatusBadRequest)
		return
	}
	preset, _ := render.FindPreset(s.opt.Presets, q.Get("view"))

	// Previews bypass the scheduler: they serve galleries, not the
	// interactive rethreshold loop, and must not cancel it.
	m, err := isosurface.Extract(r.Context(), vol, vol.Frame(s.opt.WorldSize), req, nil)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img := render.Render(m, render.Options{
		Size:        size,
		Supersample: s.opt.Supersample,
		Preset:      preset,
		Matcap:      s.opt.Matcap,
	})
	img = postprocess.Despeckle(img, 0.005)
	img = postprocess.FitCanvas(img, size, 0.90)
	if preset.Flip {
		img = postprocess.FlipHorizontal(img)
	}

	format := q.Get("format")
	if format == "" {
		format = "webp"
	}
	writeImage(w, format, img)
}
