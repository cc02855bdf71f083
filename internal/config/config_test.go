package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// unsetFlags carries the CLI zero state: threshold -1 means "not given".
var unsetFlags = Flags{Threshold: -1}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing config file loaded without error")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{addr:"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config parsed without error")
	}
}

func TestLoadParsesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"data_dir": "/scans",
		"addr": ":9000",
		"threshold": 0.4,
		"stride": 1,
		"window_level": 0.6,
		"webp_quality": 75
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/scans" || cfg.Addr != ":9000" || cfg.Threshold != 0.4 ||
		cfg.Stride != 1 || cfg.WindowLevel != 0.6 || cfg.WebPQuality != 75 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg := Config{BaseDir: t.TempDir()}
	cfg.Resolve(unsetFlags)

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Threshold != 0.25 {
		t.Errorf("Threshold = %v, want 0.25", cfg.Threshold)
	}
	if cfg.Stride != 2 {
		t.Errorf("Stride = %d, want 2", cfg.Stride)
	}
	if cfg.WorldSize != 2 {
		t.Errorf("WorldSize = %v, want 2", cfg.WorldSize)
	}
	if cfg.WindowLevel != 0.5 || cfg.WindowWidth != 1 {
		t.Errorf("window = %v/%v, want 0.5/1", cfg.WindowLevel, cfg.WindowWidth)
	}
	if cfg.RenderSize != 256 || cfg.Supersample != 2 || cfg.WebPQuality != 90 {
		t.Errorf("render settings = %d/%d/%d, want 256/2/90",
			cfg.RenderSize, cfg.Supersample, cfg.WebPQuality)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want NumCPU", cfg.Workers)
	}
}

func TestResolveFlagsOverride(t *testing.T) {
	cfg := Config{
		BaseDir:     "/from-config",
		Addr:        ":9000",
		Threshold:   0.4,
		WebPQuality: 75,
		Workers:     3,
	}
	cfg.Resolve(Flags{
		DataDir:   "/from-flag",
		Addr:      ":7000",
		Threshold: 0.6,
		Quality:   80,
		Workers:   5,
	})

	if cfg.BaseDir != "/from-flag" {
		t.Errorf("BaseDir = %q, want flag value", cfg.BaseDir)
	}
	if want := filepath.Join("/from-flag", "data"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
	if cfg.Addr != ":7000" || cfg.Threshold != 0.6 || cfg.WebPQuality != 80 || cfg.Workers != 5 {
		t.Errorf("flags did not override: %+v", cfg)
	}
}

func TestResolveKeepsConfigWhenFlagsUnset(t *testing.T) {
	cfg := Config{Addr: ":9000", Threshold: 0.4}
	cfg.Resolve(unsetFlags)
	if cfg.Addr != ":9000" || cfg.Threshold != 0.4 {
		t.Errorf("unset flags clobbered config values: %+v", cfg)
	}
}

func TestResolveRelativePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Config{
		BaseDir:   base,
		DataDir:   "scans",
		OutputDir: "out",
	}
	cfg.Resolve(unsetFlags)

	if want := filepath.Join(base, "scans"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
	if want := filepath.Join(base, "out"); cfg.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, want)
	}
}

func TestResolvePathDefaults(t *testing.T) {
	base := t.TempDir()
	cfg := Config{BaseDir: base}
	cfg.Resolve(unsetFlags)

	if want := filepath.Join(base, "data"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
	if want := filepath.Join(base, "renders"); cfg.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, want)
	}
	if cfg.StaticDir != "" {
		t.Errorf("StaticDir = %q, want empty without a web dir", cfg.StaticDir)
	}
	if cfg.Presets != "" {
		t.Errorf("Presets = %q, want empty without a preset file", cfg.Presets)
	}
}

func TestResolveProbesStaticAndPresets(t *testing.T) {
	base := t.TempDir()
	if err := os.Mkdir(filepath.Join(base, "web"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "views.yaml"), []byte("- name: lateral\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{BaseDir: base}
	cfg.Resolve(unsetFlags)

	if want := filepath.Join(base, "web"); cfg.StaticDir != want {
		t.Errorf("StaticDir = %q, want %q", cfg.StaticDir, want)
	}
	if want := filepath.Join(base, "views.yaml"); cfg.Presets != want {
		t.Errorf("Presets = %q, want %q", cfg.Presets, want)
	}
}

func TestResolveClampsBadValues(t *testing.T) {
	cfg := Config{
		BaseDir:     t.TempDir(),
		Threshold:   1.5,
		WindowLevel: 2,
		WindowWidth: -1,
		Stride:      -4,
	}
	cfg.Resolve(unsetFlags)

	if cfg.Threshold != 0.25 || cfg.WindowLevel != 0.5 || cfg.WindowWidth != 1 || cfg.Stride != 2 {
		t.Errorf("out-of-range values not reset to defaults: %+v", cfg)
	}
}
