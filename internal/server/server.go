// Package server exposes the volume catalog over HTTP for the browser
// viewer: dataset listing, windowed slices, isosurfaces and previews.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/rs/cors"

	"neurovol-viewer/internal/isosurface"
	"neurovol-viewer/internal/nifti"
	"neurovol-viewer/internal/render"
	"neurovol-viewer/internal/store"
)

// Catalog is the volume source the server serves: listing plus resolution.
type Catalog interface {
	store.Resolver
	Names() []string
}

// Options configures the HTTP surface. Zero fields pick viewer defaults.
type Options struct {
	StaticDir string // front-end files; empty disables static serving

	WorldSize float64
	Threshold float64 // default isosurface threshold
	Stride    int

	Presets     []render.Preset
	Matcap      *image.NRGBA
	RenderSize  int
	Supersample int
}

// Server handles the viewer API. One extraction Scheduler per volume
// applies last-request-wins to interactive rethresholding.
type Server struct {
	catalog Catalog
	opt     Options
	handler http.Handler

	mu         sync.Mutex
	schedulers map[*nifti.Volume]*isosurface.Scheduler
}

// New builds the handler chain: routes, CORS, cache suppression, request log.
func New(catalog Catalog, opt Options) *Server {
	if opt.WorldSize <= 0 {
		opt.WorldSize = 2
	}
	if opt.Threshold <= 0 || opt.Threshold > 1 {
		opt.Threshold = 0.25
	}
	if opt.Stride <= 0 {
		opt.Stride = isosurface.DefaultStride
	}
	if opt.RenderSize <= 0 {
		opt.RenderSize = 256
	}
	if opt.Supersample <= 0 {
		opt.Supersample = 2
	}
	if len(opt.Presets) == 0 {
		opt.Presets = render.DefaultPresets()
	}

	s := &Server{
		catalog:    catalog,
		opt:        opt,
		schedulers: make(map[*nifti.Volume]*isosurface.Scheduler),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/volumes", s.handleVolumes)
	mux.HandleFunc("GET /api/volumes/{name}/info", s.handleInfo)
	mux.HandleFunc("GET /api/volumes/{name}/slice/{plane}/{index}", s.handleSlice)
	mux.HandleFunc("GET /api/volumes/{name}/surface", s.handleSurface)
	mux.HandleFunc("GET /api/volumes/{name}/preview", s.handlePreview)
	if opt.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(opt.StaticDir)))
	}

	withCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(mux)
	s.handler = logRequests(noCache(withCORS))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// scheduler returns the extraction slot for a volume, creating it on first
// use. Keyed by the decoded volume so every name alias shares one slot.
func (s *Server) scheduler(vol *nifti.Volume) *isosurface.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.schedulers[vol]
	if !ok {
		sch = &isosurface.Scheduler{}
		s.schedulers[vol] = sch
	}
	return sch
}

// resolve fetches the requested volume or writes the error response.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*nifti.Volume, bool) {
	vol, err := s.catalog.Resolve(r.PathValue("name"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownVolume):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, nifti.ErrMalformed), errors.Is(err, nifti.ErrDecompress):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return vol, true
}

// noCache mirrors the development server the front-end was built against:
// every response opts out of client caching.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status,
			time.Since(start).Round(time.Millisecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode: %v", err)
	}
}

// writeImage encodes img in the requested format. The caller resolves the
// per-endpoint default before passing format in.
func writeImage(w http.ResponseWriter, format string, img *image.NRGBA) {
	switch format {
	case "png":
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, img); err != nil {
			log.Printf("png encode: %v", err)
		}
	case "webp":
		w.Header().Set("Content-Type", "image/webp")
		if err := nativewebp.Encode(w, img, nil); err != nil {
			log.Printf("webp encode: %v", err)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown image format %q", format), http.StatusBadRequest)
	}
}

func floatParam(q url.Values, key string, def float64) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}
