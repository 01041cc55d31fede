package scanner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// DuplicateExtensions are the extensions the duplicate scan and most detectors
// accept.
var DuplicateExtensions = []string{".png", ".jpg", ".jpeg"}

// CorruptionExtensions widens the set for the corruption check.
var CorruptionExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tiff"}

// HasExtension reports whether name ends in one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ListImages returns the names of regular files directly inside dir whose
// extension is in exts, sorted lexicographically. Subfolders are not walked.
func ListImages(fs afero.Fs, dir string, exts []string) ([]string, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input folder %s is not a directory", dir)
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read input folder %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Mode().IsRegular() {
			continue
		}
		if HasExtension(e.Name(), exts) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
