package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"gocv.io/x/gocv"

	"phototriage/logging"
)

// ErrEmptyImage is returned when a file decodes to an empty matrix.
var ErrEmptyImage = errors.New("image decoded to an empty matrix")

// StandardImageLoader reads files through an afero.Fs and decodes them with
// OpenCV, falling back to the Go decoders for formats OpenCV was built
// without.
type StandardImageLoader struct {
	Fs    afero.Fs
	Flags gocv.IMReadFlag
}

// NewStandardImageLoader creates a loader that returns single-channel images
func NewStandardImageLoader(fs afero.Fs) *StandardImageLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &StandardImageLoader{Fs: fs, Flags: gocv.IMReadGrayScale}
}

// NewColorImageLoader creates a loader that returns BGR images
func NewColorImageLoader(fs afero.Fs) *StandardImageLoader {
	l := NewStandardImageLoader(fs)
	l.Flags = gocv.IMReadColor
	return l
}

// CanLoad checks the extension and that the file exists
func (l *StandardImageLoader) CanLoad(path string) bool {
	if !IsImageFile(path) {
		return false
	}
	ok, err := afero.Exists(l.Fs, path)
	return err == nil && ok
}

// LoadImage loads one image
func (l *StandardImageLoader) LoadImage(path string) (gocv.Mat, error) {
	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		return gocv.NewMat(), err
	}

	if img, err := gocv.IMDecode(data, l.Flags); err == nil {
		if !img.Empty() {
			return img, nil
		}
		img.Close()
	}

	logging.DebugLog("OpenCV could not decode %s, trying Go decoders", path)
	goImg, derr := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if derr != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s: %w", ErrEmptyImage, path, derr)
	}
	return gocvMatFromGoImage(goImg, l.Flags == gocv.IMReadGrayScale)
}
