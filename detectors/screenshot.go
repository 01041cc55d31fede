package detectors

import (
	"errors"
	"sync"

	"github.com/barasher/go-exiftool"

	"phototriage/imageprocessor"
	"phototriage/logging"
	"phototriage/scanner"
)

// MetadataReader returns the metadata fields of an image file
type MetadataReader interface {
	Fields(path string) (map[string]any, error)
}

// ExiftoolReader reads metadata through one long-lived exiftool process
type ExiftoolReader struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExiftoolReader starts exiftool. It fails when the binary is missing.
func NewExiftoolReader() (*ExiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, err
	}
	return &ExiftoolReader{et: et}, nil
}

// Fields extracts every tag exiftool reports for path
func (r *ExiftoolReader) Fields(path string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := r.et.ExtractMetadata(path)
	if len(infos) == 0 {
		return nil, errors.New("no metadata extracted")
	}
	if infos[0].Err != nil {
		return nil, infos[0].Err
	}
	return infos[0].Fields, nil
}

// Close stops the exiftool process
func (r *ExiftoolReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.et.Close()
}

// ScreenshotDetector flags images with screen-like proportions or screen
// capture metadata. Metadata is optional.
type ScreenshotDetector struct {
	Loader   imageprocessor.ImageLoader
	Metadata MetadataReader
}

func (d *ScreenshotDetector) Name() string         { return "screenshot" }
func (d *ScreenshotDetector) OutputFile() string   { return ScreenshotDataFile }
func (d *ScreenshotDetector) Extensions() []string { return scanner.DuplicateExtensions }

func (d *ScreenshotDetector) Detect(path string) (any, error) {
	img, err := d.Loader.LoadImage(path)
	if err != nil {
		return nil, err
	}
	width, height := img.Cols(), img.Rows()
	img.Close()

	if IsCommonAspectRatio(width, height) {
		return ScreenshotRecord{IsScreenshot: true}, nil
	}
	if d.Metadata == nil {
		return ScreenshotRecord{}, nil
	}

	fields, err := d.Metadata.Fields(path)
	if err != nil {
		logging.DebugLog("no metadata for %s: %v", path, err)
		return ScreenshotRecord{}, nil
	}
	return ScreenshotRecord{IsScreenshot: HasScreenshotMarker(fields)}, nil
}
