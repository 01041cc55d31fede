package hashing

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

var (
	// ErrDecode marks a file that could not be read or is not a valid image.
	ErrDecode = errors.New("image decode failed")
	// ErrPrimitive marks a failure inside the hash primitive itself.
	ErrPrimitive = errors.New("hash computation failed")
)

// Computer turns an image file into a perceptual hash. Errors wrap ErrDecode
// or ErrPrimitive.
type Computer interface {
	Compute(path string) (ImageHash, error)
}

// Algorithm names a goimagehash hash family.
type Algorithm string

const (
	AlgorithmAverage    Algorithm = "average"
	AlgorithmDifference Algorithm = "difference"
	AlgorithmPerception Algorithm = "perception"
)

// DefaultHashSize is the side of the hash grid; 8 gives a 64-bit hash.
const DefaultHashSize = 8

// GoImageHasher decodes images with imaging (EXIF orientation applied) and
// hashes them with goimagehash.
type GoImageHasher struct {
	Fs        afero.Fs
	Algorithm Algorithm
	Size      int
}

// NewGoImageHasher validates the algorithm and size. Size must be a power of
// two no smaller than 8 so every algorithm yields whole 64-bit words.
func NewGoImageHasher(fs afero.Fs, algorithm Algorithm, size int) (*GoImageHasher, error) {
	switch algorithm {
	case AlgorithmAverage, AlgorithmDifference, AlgorithmPerception:
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
	if size == 0 {
		size = DefaultHashSize
	}
	if size < 8 || size&(size-1) != 0 {
		return nil, fmt.Errorf("hash size %d must be a power of two >= 8", size)
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &GoImageHasher{Fs: fs, Algorithm: algorithm, Size: size}, nil
}

// Compute implements Computer.
func (h *GoImageHasher) Compute(path string) (hash ImageHash, err error) {
	data, err := afero.ReadFile(h.Fs, path)
	if err != nil {
		return ImageHash{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return ImageHash{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	defer func() {
		if r := recover(); r != nil {
			hash = ImageHash{}
			err = fmt.Errorf("%w: %s: panic: %v", ErrPrimitive, path, r)
		}
	}()

	ext, err := h.hash(img)
	if err != nil {
		return ImageHash{}, fmt.Errorf("%w: %s: %w", ErrPrimitive, path, err)
	}
	return New(ext.GetHash(), ext.Bits()), nil
}

func (h *GoImageHasher) hash(img image.Image) (*goimagehash.ExtImageHash, error) {
	switch h.Algorithm {
	case AlgorithmDifference:
		return goimagehash.ExtDifferenceHash(img, h.Size, h.Size)
	case AlgorithmPerception:
		return goimagehash.ExtPerceptionHash(img, h.Size, h.Size)
	default:
		return goimagehash.ExtAverageHash(img, h.Size, h.Size)
	}
}
