// Package config loads viewer settings from JSON with CLI-flag overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds all configurable paths, extraction and render settings.
type Config struct {
	// Paths
	BaseDir   string `json:"base_dir"`
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`
	StaticDir string `json:"static_dir"`
	Matcap    string `json:"matcap"`
	Presets   string `json:"presets"`
	LogFile   string `json:"log_file"`

	// Server
	Addr string `json:"addr"`

	// Surface extraction
	Threshold float64 `json:"threshold"`
	Stride    int     `json:"stride"`
	WorldSize float64 `json:"world_size"`

	// Slice windowing
	WindowLevel float64 `json:"window_level"`
	WindowWidth float64 `json:"window_width"`

	// Render settings
	Preset      string `json:"preset"`
	RenderSize  int    `json:"render_size"`
	Supersample int    `json:"supersample"`
	WebPQuality int    `json:"webp_quality"`
	Workers     int    `json:"workers"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with auto-detected defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.DataDir != "" {
		c.BaseDir = flags.DataDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Addr != "" {
		c.Addr = flags.Addr
	}
	if flags.Threshold >= 0 {
		c.Threshold = flags.Threshold
	}
	if flags.Quality > 0 {
		c.WebPQuality = flags.Quality
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	// Auto-detect base dir if still empty
	if c.BaseDir == "" {
		c.BaseDir = detectBaseDir()
	}

	// Resolve relative paths against base dir
	if c.BaseDir != "" {
		if c.DataDir == "" {
			c.DataDir = filepath.Join(c.BaseDir, "data")
		} else if !filepath.IsAbs(c.DataDir) {
			c.DataDir = filepath.Join(c.BaseDir, c.DataDir)
		}

		if c.OutputDir == "" {
			c.OutputDir = filepath.Join(c.BaseDir, "renders")
		} else if !filepath.IsAbs(c.OutputDir) {
			c.OutputDir = filepath.Join(c.BaseDir, c.OutputDir)
		}

		if c.StaticDir == "" {
			c.StaticDir = findStaticDir(c.BaseDir)
		} else if !filepath.IsAbs(c.StaticDir) {
			c.StaticDir = filepath.Join(c.BaseDir, c.StaticDir)
		}

		if c.Presets == "" {
			c.Presets = findPresetsFile(c.BaseDir)
		} else if !filepath.IsAbs(c.Presets) {
			c.Presets = filepath.Join(c.BaseDir, c.Presets)
		}

		if c.Matcap != "" && !filepath.IsAbs(c.Matcap) {
			c.Matcap = filepath.Join(c.BaseDir, c.Matcap)
		}
		if c.LogFile != "" && !filepath.IsAbs(c.LogFile) {
			c.LogFile = filepath.Join(c.BaseDir, c.LogFile)
		}
	}

	// Defaults for extraction and display
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = 0.25
	}
	if c.Stride <= 0 {
		c.Stride = 2
	}
	if c.WorldSize <= 0 {
		c.WorldSize = 2
	}
	if c.WindowLevel <= 0 || c.WindowLevel > 1 {
		c.WindowLevel = 0.5
	}
	if c.WindowWidth <= 0 || c.WindowWidth > 1 {
		c.WindowWidth = 1
	}

	// Defaults for render settings
	if c.RenderSize <= 0 {
		c.RenderSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.WebPQuality <= 0 {
		c.WebPQuality = 90
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Flags holds CLI flag values that override config file settings.
// Threshold treats negative values as unset, since 0 is a legal threshold.
type Flags struct {
	DataDir   string
	OutputDir string
	Addr      string
	Threshold float64
	Quality   int
	Workers   int
}

func detectBaseDir() string {
	// Try relative to executable
	exe, _ := os.Executable()
	if exe != "" {
		dir := filepath.Dir(exe)
		for _, base := range []string{dir, filepath.Dir(dir), filepath.Join(dir, "..", "..")} {
			if hasDataDir(base) {
				return base
			}
		}
	}

	// Try current working directory, then its parent
	cwd, _ := os.Getwd()
	if hasDataDir(cwd) {
		return cwd
	}
	parent := filepath.Dir(cwd)
	if hasDataDir(parent) {
		return parent
	}

	return ""
}

func hasDataDir(base string) bool {
	info, err := os.Stat(filepath.Join(base, "data"))
	return err == nil && info.IsDir()
}

// findStaticDir probes the usual front-end locations. An empty result
// disables static serving rather than failing startup.
func findStaticDir(baseDir string) string {
	for _, c := range []string{
		filepath.Join(baseDir, "web"),
		filepath.Join(baseDir, "static"),
	} {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return ""
}

// findPresetsFile probes for an optional view-preset file. An empty result
// selects the built-in presets.
func findPresetsFile(baseDir string) string {
	for _, c := range []string{
		filepath.Join(baseDir, "views.yaml"),
		filepath.Join(baseDir, "data", "views.yaml"),
	} {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
