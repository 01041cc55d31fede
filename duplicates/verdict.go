package duplicates

// Kind is the outcome of classifying one image.
type Kind int

const (
	Unique Kind = iota
	Identical
	Near
	HashFailed
)

func (k Kind) String() string {
	switch k {
	case Unique:
		return "unique"
	case Identical:
		return "identical"
	case Near:
		return "near"
	case HashFailed:
		return "hash_failed"
	default:
		return "unknown"
	}
}

// Verdict is the single outcome recorded for a processed filename. Of and
// Distance are set for Identical and Near, Err for HashFailed.
type Verdict struct {
	Kind     Kind
	Of       string
	Distance int
	Err      error
}

// IdenticalRecord is the duplicate_data.json value for an identical image.
type IdenticalRecord struct {
	IdenticalDuplicateOf string `json:"identical_duplicate_of"`
	Distance             int    `json:"distance"`
}

// NearRecord is the duplicate_data.json value for a near-duplicate.
type NearRecord struct {
	NearDuplicateOf string `json:"near_duplicate_of"`
	HammingDistance int    `json:"hamming_distance"`
}

// Record returns the value persisted for v. Unique and failed images have no
// record.
func (v Verdict) Record() (any, bool) {
	switch v.Kind {
	case Identical:
		return IdenticalRecord{IdenticalDuplicateOf: v.Of, Distance: 0}, true
	case Near:
		return NearRecord{NearDuplicateOf: v.Of, HammingDistance: v.Distance}, true
	default:
		return nil, false
	}
}
