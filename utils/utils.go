package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GetDefaultDatabasePath returns the catalog path used by search when none is
// configured: images.db next to the executable.
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "images.db"
	}
	return filepath.Join(filepath.Dir(exePath), "images.db")
}

// ParseThreshold parses a Hamming distance threshold. It must be a
// non-negative integer.
func ParseThreshold(thresholdStr string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(thresholdStr))
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", thresholdStr, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid threshold %q: must be non-negative", thresholdStr)
	}
	return v, nil
}

// ParseBool accepts the usual true/false spellings plus yes/no and on/off.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

// Similarity turns a Hamming distance into a percentage of matching bits.
func Similarity(distance, bits int) float64 {
	if bits <= 0 {
		return 0
	}
	return 100 * float64(bits-distance) / float64(bits)
}
