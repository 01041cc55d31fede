package detectors

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"gocv.io/x/gocv"

	"phototriage/imageprocessor"
	"phototriage/scanner"
)

var tagColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}

// FaceDetector counts faces with an OpenCV Haar cascade. When TagFolder is
// set, a copy of each image with the faces boxed is written there as
// tagged_<name>.
type FaceDetector struct {
	Loader    imageprocessor.ImageLoader // must return color images
	Fs        afero.Fs
	TagFolder string

	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewFaceDetector loads the cascade file. Close releases it.
func NewFaceDetector(loader imageprocessor.ImageLoader, cascadePath string) (*FaceDetector, error) {
	if cascadePath == "" {
		return nil, errors.New("face detection needs a cascade file (face_cascade)")
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("cannot load face cascade %s", cascadePath)
	}
	return &FaceDetector{Loader: loader, classifier: classifier}, nil
}

// Close releases the cascade
func (d *FaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}

func (d *FaceDetector) Name() string         { return "faces" }
func (d *FaceDetector) OutputFile() string   { return FaceDataFile }
func (d *FaceDetector) Extensions() []string { return scanner.DuplicateExtensions }

func (d *FaceDetector) Detect(path string) (any, error) {
	img, err := d.Loader.LoadImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	// the cascade is not safe for concurrent use
	d.mu.Lock()
	faces := d.classifier.DetectMultiScale(gray)
	d.mu.Unlock()

	if d.TagFolder != "" && len(faces) > 0 {
		if err := d.writeTagged(img, faces, filepath.Base(path)); err != nil {
			return nil, err
		}
	}
	return FaceRecord{FacesDetected: len(faces)}, nil
}

func (d *FaceDetector) writeTagged(img gocv.Mat, faces []image.Rectangle, name string) error {
	for _, r := range faces {
		gocv.Rectangle(&img, r, tagColor, 2)
	}

	buf, err := gocv.IMEncode(gocv.FileExt(imageprocessor.FormatToExtension(imageprocessor.GetFileFormat(name))), img)
	if err != nil {
		return fmt.Errorf("encode tagged %s: %w", name, err)
	}
	defer buf.Close()

	fs := d.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(d.TagFolder, 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, filepath.Join(d.TagFolder, TaggedName(name)), buf.GetBytes(), 0o644)
}

// TaggedName is the filename of the boxed copy of name
func TaggedName(name string) string {
	return "tagged_" + name
}
