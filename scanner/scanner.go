package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"phototriage/duplicates"
	"phototriage/hashing"
	"phototriage/logging"
	"phototriage/resultstore"
	"phototriage/signalhandler"
)

type hashOutcome struct {
	hash hashing.ImageHash
	err  error
}

// Run scans opts.InputFolder for duplicates and merges the verdicts into
// duplicate_data.json under opts.OutputFolder.
//
// Files are hashed in parallel but classified strictly in sorted filename
// order, so the first file of a group is always its canonical image. Per-file
// failures are counted and never abort the run. When ctx is cancelled the
// verdicts reached so far are still flushed, Summary.Cancelled is set and the
// context error is returned.
func Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	if opts.Hasher == nil {
		return summary, errors.New("no hash computer configured")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	classifier, err := duplicates.NewClassifier(duplicates.NewIndex(), opts.Threshold)
	if err != nil {
		return summary, err
	}

	names, err := ListImages(opts.Fs, opts.InputFolder, DuplicateExtensions)
	if err != nil {
		return summary, err
	}

	storePath := filepath.Join(opts.OutputFolder, DuplicateDataFile)
	store := resultstore.Load(opts.Fs, storePath)
	if err := store.LoadErr(); err != nil {
		logging.LogWarning("starting from an empty store: %v", err)
	}

	workers := signalhandler.ResolveWorkers(opts.Workers)
	logging.DebugLog("duplicate scan of %s: %d images, threshold %d, %d workers",
		opts.InputFolder, len(names), classifier.Threshold(), workers)

	progress := NewProgressTracker(len(names), "duplicates", opts.Progress)
	startTime := time.Now()
	results := make([]FileResult, 0, len(names))

	cancelled := processOrdered(ctx, names, workers,
		func(name string) hashOutcome {
			h, err := opts.Hasher.Compute(filepath.Join(opts.InputFolder, name))
			return hashOutcome{hash: h, err: err}
		},
		func(i int, out hashOutcome) {
			res := FileResult{Name: names[i], Path: filepath.Join(opts.InputFolder, names[i]), Hash: out.hash}
			if out.err != nil {
				res.Verdict = duplicates.Verdict{Kind: duplicates.HashFailed, Err: out.err}
			} else {
				res.Verdict = classifier.Classify(out.hash, res.Name)
			}
			applyVerdict(store, res)
			summary.add(res.Verdict)
			progress.Record(res.Path, res.Verdict.Err)
			if opts.DebugMode && res.Verdict.Kind != duplicates.Unique && res.Verdict.Kind != duplicates.HashFailed {
				logging.DebugLog("%s: %s of %s (distance %d)", res.Name, res.Verdict.Kind, res.Verdict.Of, res.Verdict.Distance)
			}
			results = append(results, res)
		})

	progress.Stop()
	summary.Cancelled = cancelled
	summary.Elapsed = time.Since(startTime)
	done, failed := progress.Counts()
	logging.DebugLog("hashed %d of %d images (%d failed), %d anchors in index",
		done, len(names), failed, classifier.Index().Len())

	if err := store.Flush(); err != nil {
		return summary, err
	}

	if opts.Catalog != nil {
		recordRun(opts, summary, startTime, results)
	}

	if cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// applyVerdict writes the record for one verdict. A file that is now unique
// loses any record left by an earlier run; a failed file keeps whatever it had.
func applyVerdict(store *resultstore.Store, res FileResult) {
	switch res.Verdict.Kind {
	case duplicates.Unique:
		store.Remove(res.Name)
	case duplicates.Identical, duplicates.Near:
		record, _ := res.Verdict.Record()
		if err := store.Upsert(res.Name, record); err != nil {
			logging.LogError("cannot record %s: %v", res.Name, err)
		}
	}
}

func (s *Summary) add(v duplicates.Verdict) {
	s.Processed++
	switch v.Kind {
	case duplicates.Unique:
		s.Unique++
	case duplicates.Identical:
		s.Duplicates++
	case duplicates.Near:
		s.Nears++
	case duplicates.HashFailed:
		s.Failures++
	}
}

// RunDetector applies d to every matching file in opts.InputFolder and merges
// the records into d.OutputFile under opts.OutputFolder, with the same
// ordering, failure and cancellation rules as Run.
func RunDetector(ctx context.Context, d Detector, opts DetectorOptions) (DetectorSummary, error) {
	summary := DetectorSummary{Detector: d.Name()}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	names, err := ListImages(opts.Fs, opts.InputFolder, d.Extensions())
	if err != nil {
		return summary, err
	}

	storePath := filepath.Join(opts.OutputFolder, d.OutputFile())
	store := resultstore.Load(opts.Fs, storePath)
	if err := store.LoadErr(); err != nil {
		logging.LogWarning("%s: starting from an empty store: %v", d.Name(), err)
	}

	type detectOutcome struct {
		record any
		err    error
	}

	progress := NewProgressTracker(len(names), d.Name(), opts.Progress)
	startTime := time.Now()

	cancelled := processOrdered(ctx, names, signalhandler.ResolveWorkers(opts.Workers),
		func(name string) detectOutcome {
			rec, err := d.Detect(filepath.Join(opts.InputFolder, name))
			return detectOutcome{record: rec, err: err}
		},
		func(i int, out detectOutcome) {
			summary.Processed++
			path := filepath.Join(opts.InputFolder, names[i])
			err := out.err
			if err == nil {
				if uerr := store.Upsert(names[i], out.record); uerr != nil {
					err = uerr
				} else {
					summary.Recorded++
				}
			}
			if err != nil {
				summary.Failures++
			}
			progress.Record(path, err)
		})

	progress.Stop()
	summary.Cancelled = cancelled
	summary.Elapsed = time.Since(startTime)

	if err := store.Flush(); err != nil {
		return summary, fmt.Errorf("%s: %w", d.Name(), err)
	}
	if cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}
