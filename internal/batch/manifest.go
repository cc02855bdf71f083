package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry describes one converted volume in the output manifest.
type ManifestEntry struct {
	Name      string     `json:"name"`
	Dim       [3]int     `json:"dim"`
	VoxelSize [3]float64 `json:"voxel_size_mm"`
	Datatype  string     `json:"datatype"`
	Min       float32    `json:"min"`
	Max       float32    `json:"max"`
	Triangles int        `json:"triangles"`
	Surface   string     `json:"surface"`
	Preview   string     `json:"preview"`
	Slices    [3]string  `json:"slices"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// WriteManifest writes manifest.json for the successful results.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		if r.Success {
			entries = append(entries, r.Entry)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
