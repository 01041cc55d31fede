package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"phototriage/database"
	"phototriage/logging"
	"phototriage/utils"
)

const maxSearchResults = 5

var searchCmd = &cobra.Command{
	Use:   "search IMAGE",
	Short: "Find catalogued images similar to IMAGE",
	Long: `Hash IMAGE with the configured algorithm and list the closest images recorded
in the catalog by earlier duplicate scans. The catalog defaults to images.db
next to the executable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.search(args[0])
	},
}

func init() {
	addDuplicateFlags(searchCmd)
}

func (a *app) search(imagePath string) error {
	dbPath := a.cfg.Database
	if dbPath == "" {
		dbPath = utils.GetDefaultDatabasePath()
	}
	catalog, err := openCatalog(dbPath)
	if err != nil {
		return err
	}
	defer catalog.Close()

	hasher, err := a.hasher()
	if err != nil {
		return &configError{err}
	}
	query, err := hasher.Compute(imagePath)
	if err != nil {
		return fmt.Errorf("hash %s: %w", imagePath, err)
	}

	out := stdout()
	if stats, err := catalog.GetScanStats(a.cfg.HashAlgorithm); err != nil {
		logging.LogWarning("Could not read catalog stats: %v", err)
	} else {
		fmt.Fprintf(out, "Catalog: %d runs, %d images, %d distinct hashes, %d duplicates (%s)\n",
			stats.Runs, stats.TotalImages, stats.UniqueHashes, stats.Duplicates, a.cfg.HashAlgorithm)
	}

	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	matches, err := catalog.FindSimilarImages(database.SearchOptions{
		Query:       query,
		Algorithm:   a.cfg.HashAlgorithm,
		Threshold:   a.cfg.Threshold,
		ExcludePath: abs,
	})
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Fprintf(out, "No images within distance %d of %s\n", a.cfg.Threshold, imagePath)
		return nil
	}
	fmt.Fprintf(out, "Found %d similar images:\n", len(matches))
	for i, m := range matches {
		if i == maxSearchResults {
			fmt.Fprintf(out, "... and %d more\n", len(matches)-maxSearchResults)
			break
		}
		fmt.Fprintf(out, "%d. %s (distance %d, %.1f%% similar)\n", i+1, m.Path, m.Distance, m.Similarity)
	}
	return nil
}
