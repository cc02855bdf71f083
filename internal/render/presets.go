package render

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"neurovol-viewer/internal/mathutil"
)

// Preset names one camera/material setup for preview rendering.
type Preset struct {
	Name      string   `yaml:"name"`
	Azimuth   float64  `yaml:"azimuth"`   // degrees around the vertical axis
	Elevation float64  `yaml:"elevation"` // degrees of pitch toward the camera
	Surface   [3]uint8 `yaml:"surface"`   // base sRGB color; zero keeps the default
	Exposure  float64  `yaml:"exposure"`  // 0 keeps the lighting default
	Matcap    string   `yaml:"matcap"`    // optional matcap texture path
	Flip      bool     `yaml:"flip"`      // mirror the preview left-to-right
}

// corticalGray is the default untextured surface color.
var corticalGray = [3]uint8{213, 205, 197}

// DefaultPresets covers the standard anatomy views.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "lateral", Azimuth: 90, Elevation: 8},
		// Mirrored so anterior points the same way as in the lateral view.
		{Name: "medial", Azimuth: 270, Elevation: 8, Flip: true},
		{Name: "anterior", Azimuth: 0, Elevation: 4},
		{Name: "superior", Azimuth: 0, Elevation: 90},
	}
}

// LoadPresets reads a preset list from a YAML file.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: read presets %s: %w", path, err)
	}
	var presets []Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("render: parse presets %s: %w", path, err)
	}
	if len(presets) == 0 {
		return nil, fmt.Errorf("render: presets %s: no entries", path)
	}
	for i, p := range presets {
		if p.Name == "" {
			return nil, fmt.Errorf("render: presets %s: entry %d has no name", path, i)
		}
	}
	return presets, nil
}

// FindPreset returns the named preset, or the first entry when the name
// is empty or unknown (second result false for unknown names).
func FindPreset(presets []Preset, name string) (Preset, bool) {
	if len(presets) == 0 {
		presets = DefaultPresets()
	}
	if name == "" {
		return presets[0], true
	}
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return presets[0], false
}

// viewRotation builds the preset's camera rotation: yaw around the
// vertical axis first, then pitch toward the camera.
func (p Preset) viewRotation() mathutil.Mat3 {
	yaw := mathutil.RotY(mathutil.Deg2Rad(p.Azimuth))
	pitch := mathutil.RotX(mathutil.Deg2Rad(p.Elevation))
	return mathutil.Mat3Mul(pitch, yaw)
}
