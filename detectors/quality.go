package detectors

import (
	"gocv.io/x/gocv"

	"phototriage/imageprocessor"
	"phototriage/scanner"
)

// QualityDetector flags low-light and overexposed photos from gray levels
type QualityDetector struct {
	Loader              imageprocessor.ImageLoader
	BrightnessThreshold float64
	OverexposureLevel   int
	OverexposureRatio   float64
}

func (d *QualityDetector) Name() string         { return "quality" }
func (d *QualityDetector) OutputFile() string   { return QualityDataFile }
func (d *QualityDetector) Extensions() []string { return scanner.DuplicateExtensions }

func (d *QualityDetector) Detect(path string) (any, error) {
	img, err := d.Loader.LoadImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	mean := img.Mean().Val1

	// pixels strictly above the level become 255
	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(img, &bright, float32(d.OverexposureLevel), 255, gocv.ThresholdBinary)
	count := gocv.CountNonZero(bright)

	return QualityRecord{
		IsLowLight:    IsLowLight(mean, d.BrightnessThreshold),
		IsOverexposed: IsOverexposed(count, img.Rows()*img.Cols(), d.OverexposureRatio),
	}, nil
}
