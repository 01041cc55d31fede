package scanner

import (
	"time"

	"phototriage/duplicates"
	"phototriage/logging"
	"phototriage/types"
)

// recordRun hands the run and its hashed files to the catalog. Catalog
// failures are only logged; the JSON store stays authoritative.
func recordRun(opts Options, summary Summary, started time.Time, results []FileResult) {
	run := types.RunInfo{
		InputFolder: opts.InputFolder,
		Algorithm:   opts.Algorithm,
		Threshold:   opts.Threshold,
		StartedAt:   started.Format(time.RFC3339),
		Processed:   summary.Processed,
		Unique:      summary.Unique,
		Duplicates:  summary.Duplicates,
		Nears:       summary.Nears,
		Failures:    summary.Failures,
		Cancelled:   summary.Cancelled,
	}

	images := make([]types.ImageInfo, 0, len(results))
	for _, res := range results {
		if res.Verdict.Kind == duplicates.HashFailed {
			continue
		}
		images = append(images, imageInfoFor(opts, res))
	}

	id, err := opts.Catalog.RecordRun(run, images)
	if err != nil {
		logging.LogWarning("catalog: cannot record run: %v", err)
		return
	}
	logging.DebugLog("catalog: recorded run %d with %d images", id, len(images))
}

func imageInfoFor(opts Options, res FileResult) types.ImageInfo {
	info := types.ImageInfo{
		Path:        res.Path,
		Name:        res.Name,
		Algorithm:   opts.Algorithm,
		Hash:        res.Hash.String(),
		HashBits:    res.Hash.Bits(),
		Verdict:     res.Verdict.Kind.String(),
		DuplicateOf: res.Verdict.Of,
		Distance:    res.Verdict.Distance,
	}
	if fi, err := opts.Fs.Stat(res.Path); err == nil {
		info.ModifiedAt = fi.ModTime().Format(time.RFC3339)
		info.Size = fi.Size()
	} else {
		logging.DebugLog("catalog: cannot stat %s: %v", res.Path, err)
	}
	return info
}
