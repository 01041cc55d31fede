package types

// ImageInfo is one catalog row: the hash and verdict recorded for an image
// during a duplicate run.
type ImageInfo struct {
	ID          int64  `json:"id"`
	RunID       int64  `json:"run_id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Algorithm   string `json:"algorithm"`
	Hash        string `json:"hash"`
	HashBits    int    `json:"hash_bits"`
	Verdict     string `json:"verdict"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Distance    int    `json:"distance"`
	ModifiedAt  string `json:"modified_at"`
	Size        int64  `json:"size"`
}

// ImageMatch is a catalog search hit
type ImageMatch struct {
	Path       string
	Name       string
	Distance   int
	Similarity float64
}

// RunInfo describes one recorded duplicate run
type RunInfo struct {
	ID          int64  `json:"id"`
	InputFolder string `json:"input_folder"`
	Algorithm   string `json:"algorithm"`
	Threshold   int    `json:"threshold"`
	StartedAt   string `json:"started_at"`
	Processed   int    `json:"processed"`
	Unique      int    `json:"unique"`
	Duplicates  int    `json:"duplicates"`
	Nears       int    `json:"nears"`
	Failures    int    `json:"failures"`
	Cancelled   bool   `json:"cancelled"`
}
