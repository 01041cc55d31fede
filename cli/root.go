package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"phototriage/resultstore"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitGenericError  = 1
	ExitConfigInvalid = 2
	ExitStoreWrite    = 3
	ExitInterrupted   = 130
)

// GlobalFlags holds flags shared across all commands
type GlobalFlags struct {
	ConfigPath string
	Input      string
	Output     string
	Database   string
	LogFile    string
	Workers    int
	Debug      bool
	Quiet      bool
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "phototriage",
	Short: "Find duplicate, blurry, badly exposed, corrupted and screenshot photos",
	Long: `phototriage scans a folder of photos and records per-image findings in JSON
files under the output folder. Each check merges into its own file, so runs
can be repeated and combined.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.ConfigPath, "config", "", "config file (default ./phototriage.toml when present)")
	pf.StringVarP(&globalFlags.Input, "input", "i", "", "folder with the images to scan")
	pf.StringVarP(&globalFlags.Output, "output", "o", "", "folder for the result files")
	pf.StringVar(&globalFlags.Database, "database", "", "sqlite catalog to record duplicate runs in")
	pf.StringVar(&globalFlags.LogFile, "log-file", "", "write logs to this file")
	pf.IntVar(&globalFlags.Workers, "workers", 0, "parallel workers (0 = 3/4 of the CPUs)")
	pf.BoolVar(&globalFlags.Debug, "debug", false, "enable debug logging")
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "hide progress bars and reports")

	rootCmd.AddCommand(duplicatesCmd)
	for _, c := range detectorCommands() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	var cfgErr *configError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &cfgErr):
		return ExitConfigInvalid
	case errors.Is(err, resultstore.ErrWrite):
		return ExitStoreWrite
	default:
		return ExitGenericError
	}
}

// configError marks a failure to build a valid configuration
type configError struct{ err error }

func (e *configError) Error() string { return "invalid configuration: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// stdout is where reports go; quiet mode discards them.
func stdout() io.Writer {
	if globalFlags.Quiet {
		return io.Discard
	}
	return os.Stdout
}
