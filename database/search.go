package database

import (
	"fmt"
	"sort"

	"phototriage/hashing"
	"phototriage/logging"
	"phototriage/types"
	"phototriage/utils"
)

// SearchOptions defines the options for a catalog search
type SearchOptions struct {
	Query       hashing.ImageHash
	Algorithm   string
	Threshold   int
	ExcludePath string // usually the query file itself
}

// FindSimilarImages returns catalogued images within opts.Threshold of the
// query hash, closest first. Rows with a different hash width are skipped.
func (c *Catalog) FindSimilarImages(opts SearchOptions) ([]types.ImageMatch, error) {
	if opts.Threshold < 0 {
		return nil, fmt.Errorf("threshold must be non-negative, got %d", opts.Threshold)
	}

	candidates, err := c.QueryCandidates(opts.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	var matches []types.ImageMatch
	for _, img := range candidates {
		if img.Path == opts.ExcludePath {
			continue
		}
		if img.HashBits != opts.Query.Bits() {
			continue
		}
		h, err := hashing.ParseHex(img.Hash, img.HashBits)
		if err != nil {
			logging.LogWarning("catalog: bad hash for %s: %v", img.Path, err)
			continue
		}
		d := opts.Query.Distance(h)
		if d > opts.Threshold {
			continue
		}
		matches = append(matches, types.ImageMatch{
			Path:       img.Path,
			Name:       img.Name,
			Distance:   d,
			Similarity: utils.Similarity(d, img.HashBits),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}
