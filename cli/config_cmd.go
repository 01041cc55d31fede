package cli

import (
	"os"

	"github.com/spf13/cobra"

	"phototriage/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the merged configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.ConfigPath)
		if err != nil {
			return &configError{err}
		}
		applyFlags(cmd, &cfg)
		return cfg.Write(os.Stdout)
	},
}

func init() {
	configCmd.AddCommand(configPrintCmd)
}
