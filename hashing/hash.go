// Package hashing holds the fixed-width perceptual hash shared by every hash
// computer, and the pure-Go computers built on goimagehash.
package hashing

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// ImageHash is an immutable fixed-width bit vector. Distance and equality are
// only defined between hashes of the same width.
type ImageHash struct {
	words []uint64
	bits  int
}

// New builds a hash of the given width from its 64-bit words. The words are
// copied and bits past the width are cleared.
func New(words []uint64, width int) ImageHash {
	if width <= 0 {
		panic(fmt.Sprintf("hashing: invalid hash width %d", width))
	}
	if want := wordsFor(width); len(words) != want {
		panic(fmt.Sprintf("hashing: %d-bit hash needs %d words, got %d", width, want, len(words)))
	}
	cp := make([]uint64, len(words))
	copy(cp, words)
	if rem := width % 64; rem != 0 {
		cp[len(cp)-1] &= (uint64(1) << rem) - 1
	}
	return ImageHash{words: cp, bits: width}
}

// FromUint64 returns a 64-bit hash.
func FromUint64(v uint64) ImageHash {
	return New([]uint64{v}, 64)
}

func wordsFor(width int) int {
	return (width + 63) / 64
}

// Bits returns the width of the hash. The zero ImageHash has width 0.
func (h ImageHash) Bits() int { return h.bits }

// Words returns a copy of the underlying words.
func (h ImageHash) Words() []uint64 {
	cp := make([]uint64, len(h.words))
	copy(cp, h.words)
	return cp
}

// Distance returns the Hamming distance between h and o. Comparing hashes of
// different widths is a programming error and panics.
func (h ImageHash) Distance(o ImageHash) int {
	if h.bits != o.bits {
		panic(fmt.Sprintf("hashing: distance between %d-bit and %d-bit hashes", h.bits, o.bits))
	}
	d := 0
	for i, w := range h.words {
		d += bits.OnesCount64(w ^ o.words[i])
	}
	return d
}

// Equal reports whether h and o have the same width and bits.
func (h ImageHash) Equal(o ImageHash) bool {
	if h.bits != o.bits {
		return false
	}
	for i, w := range h.words {
		if w != o.words[i] {
			return false
		}
	}
	return true
}

// String renders the hash as lowercase hex, 16 digits per word.
func (h ImageHash) String() string {
	var sb strings.Builder
	sb.Grow(len(h.words) * 16)
	for _, w := range h.words {
		fmt.Fprintf(&sb, "%016x", w)
	}
	return sb.String()
}

// ParseHex parses the String form of a hash of the given width.
func ParseHex(s string, width int) (ImageHash, error) {
	if width <= 0 {
		return ImageHash{}, fmt.Errorf("invalid hash width %d", width)
	}
	n := wordsFor(width)
	if len(s) != n*16 {
		return ImageHash{}, fmt.Errorf("hash %q: expected %d hex digits for %d bits", s, n*16, width)
	}
	words := make([]uint64, n)
	for i := range words {
		w, err := strconv.ParseUint(s[i*16:(i+1)*16], 16, 64)
		if err != nil {
			return ImageHash{}, fmt.Errorf("hash %q: %w", s, err)
		}
		words[i] = w
	}
	return New(words, width), nil
}
