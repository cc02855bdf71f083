package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"

	"github.com/natefinch/lumberjack"

	"neurovol-viewer/internal/config"
	"neurovol-viewer/internal/render"
	"neurovol-viewer/internal/server"
	"neurovol-viewer/internal/store"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	addr := flag.String("addr", "", "Listen address (default: :8080)")
	dataDir := flag.String("data", "", "Path to base directory (default: auto-detect)")
	staticDir := flag.String("static", "", "Front-end directory to serve at / (default: auto-detect)")
	logFile := flag.String("logfile", "", "Rotating log file (default: stderr)")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	cfg.Resolve(config.Flags{
		DataDir:   *dataDir,
		Addr:      *addr,
		Threshold: -1,
	})

	if cfg.BaseDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find data directory. Use -data flag or config.json.")
		os.Exit(1)
	}

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename: cfg.LogFile,
			MaxSize:  100, // megabytes
			MaxAge:   14,  // days
		})
	}

	index := store.BuildIndex(cfg.DataDir)
	if index.Len() == 0 {
		log.Printf("warning: no .nii/.nii.gz files under %s", cfg.DataDir)
	}

	presets := render.DefaultPresets()
	if cfg.Presets != "" {
		loaded, err := render.LoadPresets(cfg.Presets)
		if err != nil {
			log.Fatalf("presets: %v", err)
		}
		presets = loaded
	}

	var matcap *image.NRGBA
	if cfg.Matcap != "" {
		m, err := render.LoadMatcap(cfg.Matcap)
		if err != nil {
			log.Printf("warning: matcap load: %v", err)
		} else {
			matcap = m
		}
	}

	srv := server.New(store.NewStore(index), server.Options{
		StaticDir:   cfg.StaticDir,
		WorldSize:   cfg.WorldSize,
		Threshold:   cfg.Threshold,
		Stride:      cfg.Stride,
		Presets:     presets,
		Matcap:      matcap,
		RenderSize:  cfg.RenderSize,
		Supersample: cfg.Supersample,
	})

	log.Printf("Serving %d volume(s) from %s", index.Len(), cfg.DataDir)
	if cfg.StaticDir != "" {
		log.Printf("Front-end: %s", cfg.StaticDir)
	}
	log.Printf("Listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		log.Fatal(err)
	}
}
