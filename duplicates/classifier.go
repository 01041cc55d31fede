package duplicates

import (
	"fmt"

	"phototriage/hashing"
)

// DefaultThreshold is the largest Hamming distance still reported as a
// near-duplicate.
const DefaultThreshold = 10

// Classifier decides, for each new hash, whether it repeats a canonical image
// already in its index. It is not safe for concurrent use; callers feed it in
// a fixed order.
type Classifier struct {
	index     *Index
	threshold int
}

// NewClassifier binds a classifier to idx. A negative threshold is rejected.
func NewClassifier(idx *Index, threshold int) (*Classifier, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must be non-negative, got %d", threshold)
	}
	if idx == nil {
		idx = NewIndex()
	}
	return &Classifier{index: idx, threshold: threshold}, nil
}

// Threshold returns the configured near-duplicate threshold.
func (c *Classifier) Threshold() int { return c.threshold }

// Index returns the index the classifier reads and extends.
func (c *Classifier) Index() *Index { return c.index }

// Classify compares hash with the canonical entries in insertion order and
// returns on the first entry within the threshold. When nothing matches, name
// becomes a canonical entry and the verdict is Unique.
func (c *Classifier) Classify(hash hashing.ImageHash, name string) Verdict {
	for _, e := range c.index.Entries() {
		d := hash.Distance(e.Hash)
		switch {
		case d == 0:
			return Verdict{Kind: Identical, Of: e.Name}
		case d <= c.threshold:
			return Verdict{Kind: Near, Of: e.Name, Distance: d}
		}
	}
	c.index.Insert(hash, name)
	return Verdict{Kind: Unique}
}
