package imageprocessor

import (
	"errors"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"phototriage/hashing"
)

var errEmptyInput = errors.New("cannot compute hash for empty image")

// ComputeAverageHash shrinks the image to 8x8 gray and sets one bit per pixel
// at or above the mean, first pixel in the most significant bit.
func ComputeAverageHash(img gocv.Mat) (hashing.ImageHash, error) {
	if img.Empty() {
		return hashing.ImageHash{}, errEmptyInput
	}

	gray := toGray(img)
	defer gray.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Point{X: 8, Y: 8}, 0, 0, gocv.InterpolationArea)

	values := make([]float64, 0, 64)
	var sum float64
	for y := 0; y < resized.Rows(); y++ {
		for x := 0; x < resized.Cols(); x++ {
			v := float64(resized.GetUCharAt(y, x))
			values = append(values, v)
			sum += v
		}
	}
	return packBits(values, sum/float64(len(values))), nil
}

// ComputePerceptualHash takes the DCT of a 32x32 gray copy and sets one bit
// per low-frequency 8x8 coefficient at or above their median.
func ComputePerceptualHash(img gocv.Mat) (hashing.ImageHash, error) {
	if img.Empty() {
		return hashing.ImageHash{}, errEmptyInput
	}

	gray := toGray(img)
	defer gray.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Point{X: 32, Y: 32}, 0, 0, gocv.InterpolationArea)

	floatImg := gocv.NewMat()
	defer floatImg.Close()
	resized.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dct := gocv.NewMat()
	defer dct.Close()
	gocv.DCT(floatImg, &dct, 0)
	if dct.Empty() {
		return hashing.ImageHash{}, errors.New("DCT produced an empty matrix")
	}

	lowFreq := dct.Region(image.Rect(0, 0, 8, 8))
	defer lowFreq.Close()

	values := make([]float64, 0, 64)
	for y := 0; y < lowFreq.Rows(); y++ {
		for x := 0; x < lowFreq.Cols(); x++ {
			values = append(values, float64(lowFreq.GetFloatAt(y, x)))
		}
	}
	return packBits(values, calculateMedian(values)), nil
}

// packBits turns up to 64 values into a 64-bit hash, one bit per value at or
// above threshold, first value in the most significant bit.
func packBits(values []float64, threshold float64) hashing.ImageHash {
	var word uint64
	for i, v := range values {
		if i == 64 {
			break
		}
		if v >= threshold {
			word |= 1 << (63 - uint(i))
		}
	}
	return hashing.FromUint64(word)
}

// calculateMedian calculates the median of values without reordering them
func calculateMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
