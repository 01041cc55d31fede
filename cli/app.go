package cli

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"phototriage/config"
	"phototriage/database"
	"phototriage/hashing"
	"phototriage/imageprocessor"
	"phototriage/logging"
	"phototriage/scanner"
)

// app is the per-invocation state every command builds first
type app struct {
	cfg config.Config
	fs  afero.Fs
}

// newApp resolves configuration (defaults, file, .env, environment, then
// the flags the user actually set) and sets up logging.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(globalFlags.ConfigPath)
	if err != nil {
		return nil, &configError{err}
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err}
	}

	if err := logging.SetupLogger(cfg.LogFile, cfg.Debug); err != nil {
		return nil, err
	}
	logging.DebugLog("effective config: input=%s output=%s threshold=%d algorithm=%s workers=%d",
		cfg.InputFolder, cfg.OutputFolder, cfg.Threshold, cfg.HashAlgorithm, cfg.Workers)

	return &app{cfg: cfg, fs: afero.NewOsFs()}, nil
}

func (a *app) close() {
	logging.CloseLogger()
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputFolder = globalFlags.Input
	}
	if flags.Changed("output") {
		cfg.OutputFolder = globalFlags.Output
	}
	if flags.Changed("database") {
		cfg.Database = globalFlags.Database
	}
	if flags.Changed("log-file") {
		cfg.LogFile = globalFlags.LogFile
	}
	if flags.Changed("workers") {
		cfg.Workers = globalFlags.Workers
	}
	if flags.Changed("debug") {
		cfg.Debug = globalFlags.Debug
	}
	if flags.Changed("threshold") {
		cfg.Threshold = dupFlags.Threshold
	}
	if flags.Changed("hash-algorithm") {
		cfg.HashAlgorithm = dupFlags.Algorithm
	}
	if flags.Changed("hash-size") {
		cfg.HashSize = dupFlags.HashSize
	}
	if flags.Changed("cascade") {
		cfg.Faces.Cascade = faceFlags.Cascade
	}
	if flags.Changed("tag") {
		cfg.Faces.Tag = faceFlags.Tag
	}
}

// hasher builds the hash computer for the configured algorithm
func (a *app) hasher() (hashing.Computer, error) {
	alg := hashing.Algorithm(a.cfg.HashAlgorithm)
	if imageprocessor.IsGocvAlgorithm(alg) {
		return imageprocessor.NewGocvHasher(a.fs, alg)
	}
	return hashing.NewGoImageHasher(a.fs, alg, a.cfg.HashSize)
}

// openCatalog opens the configured catalog, retrying briefly since another
// process may hold the sqlite lock.
func openCatalog(path string) (*database.Catalog, error) {
	const maxRetries = 3
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		c, err := database.Open(path)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if i < maxRetries-1 {
			logging.LogWarning("Error opening catalog (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return nil, fmt.Errorf("open catalog %s after %d attempts: %w", path, maxRetries, lastErr)
}

func (a *app) detectorOptions() scanner.DetectorOptions {
	return scanner.DetectorOptions{
		Fs:           a.fs,
		InputFolder:  a.cfg.InputFolder,
		OutputFolder: a.cfg.OutputFolder,
		Workers:      a.cfg.Workers,
		Progress:     !globalFlags.Quiet,
	}
}
