package detectors

import (
	"bytes"
	"image"
	_ "image/gif"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"phototriage/logging"
	"phototriage/scanner"
)

// CorruptionDetector checks that a file has a valid header and decodes in
// full, which catches truncated files.
type CorruptionDetector struct {
	Fs afero.Fs
}

func (d *CorruptionDetector) Name() string         { return "corruption" }
func (d *CorruptionDetector) OutputFile() string   { return CorruptionDataFile }
func (d *CorruptionDetector) Extensions() []string { return scanner.CorruptionExtensions }

// Detect only fails when the file cannot be read at all.
func (d *CorruptionDetector) Detect(path string) (any, error) {
	fs := d.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return CorruptionRecord{IsCorrupted: IsCorrupted(data, path)}, nil
}

// IsCorrupted decodes the header and then the whole image.
func IsCorrupted(data []byte, name string) bool {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		logging.DebugLog("%s is corrupted: %v", name, err)
		return true
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		logging.DebugLog("%s is corrupted: %v", name, err)
		return true
	}
	return false
}
