package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"phototriage/detectors"
	"phototriage/imageprocessor"
	"phototriage/logging"
	"phototriage/scanner"
	"phototriage/signalhandler"
)

// FaceFlags holds the faces command flags
type FaceFlags struct {
	Cascade string
	Tag     bool
}

var faceFlags FaceFlags

// detectorFactory builds a detector from the effective configuration. The
// returned cleanup releases whatever the detector holds.
type detectorFactory func(a *app) (scanner.Detector, func(), error)

type detectorCommand struct {
	use, short string
	build      detectorFactory
}

var detectorTable = []detectorCommand{
	{"blur", "Score sharpness and flag blurry photos", buildBlur},
	{"quality", "Flag low-light and overexposed photos", buildQuality},
	{"screenshot", "Flag screenshots by aspect ratio and metadata", buildScreenshot},
	{"corruption", "Flag files that fail to decode", buildCorruption},
	{"faces", "Count faces and optionally write tagged copies", buildFaces},
}

func detectorCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, dc := range detectorTable {
		build := dc.build
		cmd := &cobra.Command{
			Use:   dc.use,
			Short: dc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				defer a.close()

				ctx, cancel := signalhandler.SetupHandler(cmd.Context())
				defer cancel()
				return a.runDetector(ctx, build)
			},
		}
		if dc.use == "faces" {
			addFaceFlags(cmd)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func addFaceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&faceFlags.Cascade, "cascade", "", "Haar cascade XML for face detection")
	cmd.Flags().BoolVar(&faceFlags.Tag, "tag", false, "write tagged_<name> copies with faces boxed to the output folder")
}

func (a *app) runDetector(ctx context.Context, build detectorFactory) error {
	d, cleanup, err := build(a)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := a.detectorOptions()
	logging.LogInfo("Running %s detector on %s", d.Name(), opts.InputFolder)
	summary, err := scanner.RunDetector(ctx, d, opts)
	if summary.Processed > 0 || summary.Cancelled {
		scanner.PrintDetectorSummary(stdout(), summary, filepath.Join(opts.OutputFolder, d.OutputFile()))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name(), err)
	}
	return nil
}

func noCleanup() {}

func buildBlur(a *app) (scanner.Detector, func(), error) {
	return &detectors.BlurDetector{
		Loader:    imageprocessor.NewStandardImageLoader(a.fs),
		Threshold: a.cfg.Blur.Threshold,
	}, noCleanup, nil
}

func buildQuality(a *app) (scanner.Detector, func(), error) {
	return &detectors.QualityDetector{
		Loader:              imageprocessor.NewStandardImageLoader(a.fs),
		BrightnessThreshold: a.cfg.Quality.BrightnessThreshold,
		OverexposureLevel:   a.cfg.Quality.OverexposureLevel,
		OverexposureRatio:   a.cfg.Quality.OverexposureRatio,
	}, noCleanup, nil
}

func buildScreenshot(a *app) (scanner.Detector, func(), error) {
	d := &detectors.ScreenshotDetector{Loader: imageprocessor.NewStandardImageLoader(a.fs)}
	reader, err := detectors.NewExiftoolReader()
	if err != nil {
		logging.LogWarning("exiftool unavailable, screenshot check uses aspect ratio only: %v", err)
		return d, noCleanup, nil
	}
	d.Metadata = reader
	return d, func() {
		if err := reader.Close(); err != nil {
			logging.DebugLog("closing exiftool: %v", err)
		}
	}, nil
}

func buildCorruption(a *app) (scanner.Detector, func(), error) {
	return &detectors.CorruptionDetector{Fs: a.fs}, noCleanup, nil
}

func buildFaces(a *app) (scanner.Detector, func(), error) {
	d, err := detectors.NewFaceDetector(imageprocessor.NewColorImageLoader(a.fs), a.cfg.Faces.Cascade)
	if err != nil {
		return nil, nil, &configError{err}
	}
	d.Fs = a.fs
	if a.cfg.Faces.Tag {
		d.TagFolder = a.cfg.OutputFolder
	}
	return d, func() { _ = d.Close() }, nil
}
