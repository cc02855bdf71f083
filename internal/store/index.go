// Package store discovers NIfTI files on disk and caches decoded volumes.
package store

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Index maps lowercase volume stems to filesystem paths.
// A plain .nii file takes priority over .nii.gz for the same stem.
type Index struct {
	entries map[string]string // stem → full path
}

// BuildIndex scans dataDir and its subdirectories for NIfTI files.
func BuildIndex(dataDir string) *Index {
	idx := &Index{entries: make(map[string]string)}

	filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.ToLower(filepath.Base(path))
		var stem string
		switch {
		case strings.HasSuffix(name, ".nii"):
			stem = strings.TrimSuffix(name, ".nii")
		case strings.HasSuffix(name, ".nii.gz"):
			stem = strings.TrimSuffix(name, ".nii.gz")
		default:
			return nil
		}

		existing, exists := idx.entries[stem]
		if !exists {
			idx.entries[stem] = path
		} else if strings.HasSuffix(name, ".nii") && strings.HasSuffix(strings.ToLower(existing), ".gz") {
			// .nii wins over .nii.gz (no inflate on every cold load)
			idx.entries[stem] = path
		}
		return nil
	})

	return idx
}

// ResolvePath returns the filesystem path for a volume name, or ("", false).
// Directory prefixes and .nii/.nii.gz suffixes are stripped, so a name taken
// from a URL segment cannot escape the data dir.
func (idx *Index) ResolvePath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	stem := strings.ToLower(filepath.Base(name))
	stem = strings.TrimSuffix(stem, ".gz")
	stem = strings.TrimSuffix(stem, ".nii")

	path, ok := idx.entries[stem]
	return path, ok
}

// Names returns the indexed volume stems in sorted order.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.entries))
	for stem := range idx.entries {
		names = append(names, stem)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexed volumes.
func (idx *Index) Len() int {
	return len(idx.entries)
}
