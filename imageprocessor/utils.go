package imageprocessor

import (
	"image"

	"gocv.io/x/gocv"
)

// gocvMatFromGoImage converts a decoded Go image into a BGR or gray Mat
func gocvMatFromGoImage(img image.Image, gray bool) (gocv.Mat, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	if !gray {
		return rgb, nil
	}
	defer rgb.Close()

	grayMat := gocv.NewMat()
	gocv.CvtColor(rgb, &grayMat, gocv.ColorBGRToGray)
	return grayMat, nil
}

// toGray returns a single-channel copy of img. The caller closes it.
func toGray(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
		return gray
	}
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray
}
