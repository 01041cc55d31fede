package imageprocessor

import (
	"fmt"

	"github.com/spf13/afero"
	"gocv.io/x/gocv"

	"phototriage/hashing"
)

// OpenCV hash algorithms, selectable alongside the goimagehash family.
const (
	AlgorithmAverage    hashing.Algorithm = "opencv-average"
	AlgorithmPerceptual hashing.Algorithm = "opencv-perceptual"
)

// GocvHasher computes OpenCV hashes; it implements hashing.Computer.
type GocvHasher struct {
	Loader    ImageLoader
	Algorithm hashing.Algorithm
	compute   func(gocv.Mat) (hashing.ImageHash, error)
}

// NewGocvHasher returns a hasher for one of the OpenCV algorithms
func NewGocvHasher(fs afero.Fs, algorithm hashing.Algorithm) (*GocvHasher, error) {
	h := &GocvHasher{Loader: NewStandardImageLoader(fs), Algorithm: algorithm}
	switch algorithm {
	case AlgorithmAverage:
		h.compute = ComputeAverageHash
	case AlgorithmPerceptual:
		h.compute = ComputePerceptualHash
	default:
		return nil, fmt.Errorf("unknown OpenCV hash algorithm %q", algorithm)
	}
	return h, nil
}

// IsGocvAlgorithm reports whether algorithm is served by GocvHasher
func IsGocvAlgorithm(algorithm hashing.Algorithm) bool {
	return algorithm == AlgorithmAverage || algorithm == AlgorithmPerceptual
}

// Compute loads path and hashes it. Load failures wrap hashing.ErrDecode;
// failures inside the hash primitive, panics included, wrap
// hashing.ErrPrimitive.
func (h *GocvHasher) Compute(path string) (hash hashing.ImageHash, err error) {
	if !h.Loader.CanLoad(path) {
		return hashing.ImageHash{}, fmt.Errorf("%w: %s: unsupported or missing file", hashing.ErrDecode, path)
	}
	img, err := h.Loader.LoadImage(path)
	if err != nil {
		return hashing.ImageHash{}, fmt.Errorf("%w: %s: %w", hashing.ErrDecode, path, err)
	}
	defer img.Close()

	defer func() {
		if r := recover(); r != nil {
			hash = hashing.ImageHash{}
			err = fmt.Errorf("%w: %s: %v", hashing.ErrPrimitive, path, r)
		}
	}()

	hash, err = h.compute(img)
	if err != nil {
		return hashing.ImageHash{}, fmt.Errorf("%w: %s: %w", hashing.ErrPrimitive, path, err)
	}
	return hash, nil
}
