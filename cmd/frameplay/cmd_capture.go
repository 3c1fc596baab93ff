// This file contains the capture command: playback plus per-frame
// screenshots, manifest bookkeeping, and optional archiving.
package main

import (
	"fmt"
	"time"

	"frameplay/internal/capture"
	"frameplay/internal/frame"
	"frameplay/internal/manifest"

	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture [url]",
	Short: "Play the frame range and record a screenshot per frame",
	Long: `Runs playback and captures the viewer page after each tick has had
time to settle, writing frames/frame_NNNN.png per frame. Every captured
frame is recorded in a manifest database, so an aborted run can be resumed
with --resume without re-shooting finished frames.

With --archive, the captured frames are zipped and the loose files removed,
ready to hand to an encoder.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCapture,
}

var (
	captureStart    int
	captureEnd      int
	captureTick     time.Duration
	captureSettle   time.Duration
	captureOut      string
	captureArchive  string
	captureFullPage bool
	captureResume   bool
)

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	url := cfg.Viewer.URL
	if len(args) == 1 {
		url = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	frames := frame.Range{Lower: cfg.Playback.StartFrame, Upper: cfg.Playback.EndFrame}
	if cmd.Flags().Changed("start") {
		frames.Lower = captureStart
	}
	if cmd.Flags().Changed("end") {
		frames.Upper = captureEnd
	}
	tick := cfg.GetTickInterval()
	if cmd.Flags().Changed("tick") {
		tick = captureTick
	}
	settle := cfg.GetSettleDelay()
	if cmd.Flags().Changed("settle") {
		settle = captureSettle
	}
	outDir := cfg.Capture.OutDir
	if captureOut != "" {
		outDir = captureOut
	}
	archive := cfg.Capture.Archive
	if captureArchive != "" {
		archive = captureArchive
	}
	fullPage := cfg.Capture.FullPage || captureFullPage

	var store *manifest.Store
	if cfg.Capture.ManifestPath != "" {
		var err error
		store, err = manifest.Open(cfg.Capture.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()
	} else if captureResume {
		return fmt.Errorf("--resume needs a manifest; set capture.manifest_path")
	}

	sess, ctl, err := openViewer(ctx, url)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Println(headerStyle.Render(fmt.Sprintf("Capturing %s (%d frames) from %s", frames, frames.Count(), url)))

	pipe := capture.New(capture.Config{
		Frames:       frames,
		TickInterval: tick,
		SettleDelay:  settle,
		OutDir:       outDir,
		FullPage:     fullPage,
		ArchivePath:  archive,
		Resume:       captureResume,
		ViewerURL:    url,
	}, ctl, sess, store, logger)

	res, err := pipe.Run(ctx)
	if err != nil {
		return fmt.Errorf("capture halted after %d frame(s): %w", res.Captured, err)
	}

	rate := 0.0
	if res.Elapsed > 0 {
		rate = float64(res.Captured) / res.Elapsed.Seconds()
	}
	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Captured %d frame(s), skipped %d, in %s (%.1f fps)",
		res.Captured, res.Skipped, res.Elapsed.Round(time.Second), rate)))
	if archive != "" {
		fmt.Println(successStyle.Render("Archive: " + archive))
	}
	return nil
}
