package detectors

import (
	"fmt"

	"gocv.io/x/gocv"

	"phototriage/imageprocessor"
	"phototriage/scanner"
)

// BlurDetector scores sharpness as the variance of the Laplacian
type BlurDetector struct {
	Loader    imageprocessor.ImageLoader
	Threshold float64
}

func (d *BlurDetector) Name() string         { return "blur" }
func (d *BlurDetector) OutputFile() string   { return BlurDataFile }
func (d *BlurDetector) Extensions() []string { return scanner.DuplicateExtensions }

func (d *BlurDetector) Detect(path string) (any, error) {
	img, err := d.Loader.LoadImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	score, err := laplacianVariance(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return BlurRecord{BlurScore: score, IsBlurry: IsBlurry(score, d.Threshold)}, nil
}

func laplacianVariance(gray gocv.Mat) (float64, error) {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	if lap.Empty() {
		return 0, fmt.Errorf("laplacian produced an empty matrix")
	}

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd, nil
}
