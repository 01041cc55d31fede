// Package detectors holds the single-signal photo checks that run beside the
// duplicate scan. Each detector implements scanner.Detector and owns one
// result file under the output folder.
package detectors

import (
	"fmt"
	"math"
	"strings"
)

// Defaults for the detector thresholds
const (
	DefaultBlurThreshold       = 100.0
	DefaultBrightnessThreshold = 40.0
	DefaultOverexposureLevel   = 250
	DefaultOverexposureRatio   = 0.3
)

// Result files, one per detector
const (
	BlurDataFile       = "blur_data.json"
	QualityDataFile    = "photo_quality_data.json"
	ScreenshotDataFile = "is_screenshot.json"
	CorruptionDataFile = "corruption_data.json"
	FaceDataFile       = "face_data.json"
)

// BlurRecord is the blur_data.json value
type BlurRecord struct {
	BlurScore float64 `json:"blur_score"`
	IsBlurry  bool    `json:"is_blurry"`
}

// QualityRecord is the photo_quality_data.json value
type QualityRecord struct {
	IsLowLight    bool `json:"is_low_light"`
	IsOverexposed bool `json:"is_overexposed"`
}

// ScreenshotRecord is the is_screenshot.json value
type ScreenshotRecord struct {
	IsScreenshot bool `json:"is_screenshot"`
}

// CorruptionRecord is the corruption_data.json value
type CorruptionRecord struct {
	IsCorrupted bool `json:"is_corrupted"`
}

// FaceRecord is the face_data.json value
type FaceRecord struct {
	FacesDetected int `json:"faces_detected"`
}

// IsBlurry reports whether a Laplacian variance is below threshold.
func IsBlurry(score, threshold float64) bool {
	return score < threshold
}

// IsLowLight reports whether the mean gray level is below threshold.
func IsLowLight(meanBrightness, threshold float64) bool {
	return meanBrightness < threshold
}

// IsOverexposed reports whether the share of blown-out pixels exceeds ratio.
func IsOverexposed(brightPixels, totalPixels int, ratio float64) bool {
	if totalPixels <= 0 {
		return false
	}
	return float64(brightPixels)/float64(totalPixels) > ratio
}

var screenRatios = [][2]float64{{16, 9}, {4, 3}, {21, 9}}

// IsCommonAspectRatio reports whether width/height is within 0.01 of a common
// screen ratio.
func IsCommonAspectRatio(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	for _, r := range screenRatios {
		if math.Abs(ratio-r[0]/r[1]) < 0.01 {
			return true
		}
	}
	return false
}

// HasScreenshotMarker reports whether any metadata value mentions a screen
// capture.
func HasScreenshotMarker(fields map[string]any) bool {
	for _, v := range fields {
		s := fmt.Sprint(v)
		if strings.Contains(s, "Screenshot") || strings.Contains(s, "Screen capture") {
			return true
		}
	}
	return false
}
