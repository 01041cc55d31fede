package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"phototriage/hashing"
	"phototriage/logging"
	"phototriage/scanner"
	"phototriage/signalhandler"
)

// DuplicateFlags holds the duplicates command flags
type DuplicateFlags struct {
	Threshold int
	Algorithm string
	HashSize  int
}

var dupFlags DuplicateFlags

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find identical and near-duplicate images",
	Long: `Hash every .png/.jpg/.jpeg file in the input folder in filename order and
record duplicates in duplicate_data.json under the output folder. An image whose
hash is within --threshold bits of an earlier unique image is a near duplicate;
distance 0 is an identical duplicate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signalhandler.SetupHandler(cmd.Context())
		defer cancel()
		return a.runDuplicates(ctx)
	},
}

func init() {
	addDuplicateFlags(duplicatesCmd)
}

func addDuplicateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&dupFlags.Threshold, "threshold", "t", 10, "maximum Hamming distance for a near duplicate")
	f.StringVar(&dupFlags.Algorithm, "hash-algorithm", string(hashing.AlgorithmAverage), "hash algorithm (average, difference, perception, opencv-average, opencv-perceptual)")
	f.IntVar(&dupFlags.HashSize, "hash-size", hashing.DefaultHashSize, "hash grid size for the goimagehash algorithms")
}

func (a *app) runDuplicates(ctx context.Context) error {
	hasher, err := a.hasher()
	if err != nil {
		return &configError{err}
	}

	opts := scanner.Options{
		Fs:           a.fs,
		InputFolder:  a.cfg.InputFolder,
		OutputFolder: a.cfg.OutputFolder,
		Threshold:    a.cfg.Threshold,
		Workers:      a.cfg.Workers,
		Hasher:       hasher,
		Algorithm:    a.cfg.HashAlgorithm,
		Progress:     !globalFlags.Quiet,
		DebugMode:    a.cfg.Debug,
	}

	if a.cfg.Database != "" {
		catalog, err := openCatalog(a.cfg.Database)
		if err != nil {
			// the catalog is a side record; the scan still runs without it
			logging.LogWarning("Running without catalog: %v", err)
		} else {
			defer catalog.Close()
			opts.Catalog = catalog
			// catalog rows are keyed by path; search looks them up absolute
			if abs, err := filepath.Abs(opts.InputFolder); err == nil {
				opts.InputFolder = abs
			}
		}
	}

	logging.LogInfo("Duplicate scan of %s (algorithm %s, threshold %d)", opts.InputFolder, opts.Algorithm, opts.Threshold)
	summary, err := scanner.Run(ctx, opts)
	if summary.Processed > 0 || summary.Cancelled {
		scanner.PrintSummary(stdout(), summary, filepath.Join(opts.OutputFolder, scanner.DuplicateDataFile))
	}
	if err != nil {
		return fmt.Errorf("duplicate scan: %w", err)
	}
	return nil
}
