package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"phototriage/logging"
	"phototriage/signalhandler"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every detector, then the duplicate scan",
	Long: `Run blur, quality, screenshot and corruption checks, face counting when a
cascade is configured, and finally the duplicate scan. A failing check is
reported and the remaining checks still run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signalhandler.SetupHandler(cmd.Context())
		defer cancel()

		var errs []error
		for _, dc := range detectorTable {
			if dc.use == "faces" && a.cfg.Faces.Cascade == "" {
				logging.LogInfo("Skipping faces: no face_cascade configured")
				continue
			}
			if err := a.runDetector(ctx, dc.build); err != nil {
				logging.LogError("%v", err)
				errs = append(errs, err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		if err := a.runDuplicates(ctx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	},
}

func init() {
	addDuplicateFlags(allCmd)
	addFaceFlags(allCmd)
}
