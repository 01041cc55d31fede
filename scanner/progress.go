package scanner

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"phototriage/logging"
)

// ProgressTracker counts processed files and drives the terminal bar
type ProgressTracker struct {
	bar       *progressbar.ProgressBar
	mu        sync.Mutex
	processed int
	errors    int
	total     int
}

// NewProgressTracker starts a bar over total files. When visible is false the
// bar renders to io.Discard and only the counters are kept.
func NewProgressTracker(total int, description string, visible bool) *ProgressTracker {
	var w io.Writer = os.Stderr
	if !visible {
		w = io.Discard
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(120*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &ProgressTracker{bar: bar, total: total}
}

// Record counts one file and logs its outcome
func (p *ProgressTracker) Record(path string, err error) {
	p.mu.Lock()
	p.processed++
	if err != nil {
		p.errors++
	}
	p.mu.Unlock()

	if err != nil {
		logging.LogImageProcessed(path, false, err.Error())
	} else {
		logging.LogImageProcessed(path, true, "")
	}
	_ = p.bar.Add(1)
}

// Counts returns processed and failed file counts
func (p *ProgressTracker) Counts() (processed, errors int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.errors
}

// Stop ends the progress display
func (p *ProgressTracker) Stop() {
	_ = p.bar.Finish()
}

// PrintSummary writes the human-readable report of a duplicate run
func PrintSummary(w io.Writer, s Summary, storePath string) {
	if s.Cancelled {
		fmt.Fprintln(w, "Scan interrupted, partial results saved.")
	} else {
		fmt.Fprintln(w, "Duplicate scan complete.")
	}
	fmt.Fprintf(w, "Processed %d images in %v.\n", s.Processed, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  unique:          %d\n", s.Unique)
	fmt.Fprintf(w, "  identical:       %d\n", s.Duplicates)
	fmt.Fprintf(w, "  near-duplicates: %d\n", s.Nears)
	if s.Failures > 0 {
		fmt.Fprintf(w, "  failed:          %d (see log for details)\n", s.Failures)
	}
	fmt.Fprintf(w, "Results written to %s\n", storePath)
}

// PrintDetectorSummary writes the report of one detector run
func PrintDetectorSummary(w io.Writer, s DetectorSummary, storePath string) {
	status := "complete"
	if s.Cancelled {
		status = "interrupted, partial results saved"
	}
	fmt.Fprintf(w, "%s %s: %d processed, %d recorded, %d failed in %v -> %s\n",
		s.Detector, status, s.Processed, s.Recorded, s.Failures, s.Elapsed.Round(time.Millisecond), storePath)
}
