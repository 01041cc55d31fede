// Package imageprocessor loads images into OpenCV matrices and computes the
// OpenCV family of perceptual hashes. Everything here needs gocv and a local
// OpenCV installation.
package imageprocessor

import "gocv.io/x/gocv"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads and returns the image. The caller closes the Mat.
	LoadImage(path string) (gocv.Mat, error)
}
