// Package duplicates classifies images against the canonical images seen
// earlier in the same run.
//
// Classification is a streaming, order-dependent scan: each hash is compared
// with the canonical entries in insertion order and the first entry within the
// threshold wins, even if a later entry would be closer. Only images judged
// unique become canonical, so duplicates are never used as anchors.
package duplicates

import (
	"strconv"

	"phototriage/hashing"
)

// Entry is one canonical image.
type Entry struct {
	Hash hashing.ImageHash
	Name string
}

// Index is an append-only, insertion-ordered set of canonical images with at
// most one entry per distinct hash value. It lives for a single run.
type Index struct {
	entries []Entry
	seen    map[string]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{seen: make(map[string]struct{})}
}

// Entries returns the canonical entries in insertion order. The slice must
// not be modified.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// Insert appends a canonical entry. It returns false, leaving the index
// unchanged, when an entry with the same hash value already exists.
func (idx *Index) Insert(hash hashing.ImageHash, name string) bool {
	key := indexKey(hash)
	if _, ok := idx.seen[key]; ok {
		return false
	}
	idx.seen[key] = struct{}{}
	idx.entries = append(idx.entries, Entry{Hash: hash, Name: name})
	return true
}

// Len returns the number of canonical entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func indexKey(h hashing.ImageHash) string {
	return h.String() + "/" + strconv.Itoa(h.Bits())
}
