package scanner

import (
	"time"

	"github.com/spf13/afero"

	"phototriage/duplicates"
	"phototriage/hashing"
	"phototriage/types"
)

// DuplicateDataFile is the store the duplicate scan merges into.
const DuplicateDataFile = "duplicate_data.json"

// Options defines the options for a duplicate scan
type Options struct {
	Fs           afero.Fs
	InputFolder  string
	OutputFolder string
	Threshold    int
	Workers      int // zero means signalhandler.GetOptimalProcs
	Hasher       hashing.Computer
	Algorithm    string  // recorded in the catalog only
	Catalog      Catalog // optional
	Progress     bool
	DebugMode    bool
}

// Summary aggregates per-file outcomes of one run. Processed includes
// failures; Duplicates counts identical images, Nears near-duplicates.
type Summary struct {
	Processed  int
	Unique     int
	Duplicates int
	Nears      int
	Failures   int
	Cancelled  bool
	Elapsed    time.Duration
}

// FileResult is the outcome for one listed file
type FileResult struct {
	Name    string
	Path    string
	Hash    hashing.ImageHash
	Verdict duplicates.Verdict
}

// Catalog receives a record of each run. It is never consulted while
// classifying.
type Catalog interface {
	RecordRun(run types.RunInfo, images []types.ImageInfo) (int64, error)
}

// Detector computes one per-image signal for the sibling result files
type Detector interface {
	Name() string
	// OutputFile is the store filename under the output folder.
	OutputFile() string
	Extensions() []string
	// Detect returns the JSON record for path. An error marks the file as
	// failed and leaves any existing record alone.
	Detect(path string) (any, error)
}

// DetectorOptions defines the options for a detector run
type DetectorOptions struct {
	Fs           afero.Fs
	InputFolder  string
	OutputFolder string
	Workers      int
	Progress     bool
}

// DetectorSummary aggregates one detector run
type DetectorSummary struct {
	Detector  string
	Processed int
	Recorded  int
	Failures  int
	Cancelled bool
	Elapsed   time.Duration
}
