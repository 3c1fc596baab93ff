package main

import (
	"fmt"
	"os"

	"frameplay/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	cfgFile string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "frameplay",
	Short: "frameplay - frame playback through a metrics viewer",
	Long: `frameplay recovers sequential video playback from per-frame telemetry
shards inside a metrics viewer whose UI was never meant to show video.

Three jobs:
  dedup    rename telemetry shards to collision-free canonical names, so the
           viewer's ingestion layer keeps every frame instead of merging them
  play     drive the viewer's tag filter through the frame range, one frame
           per tick, so the scalar plots animate
  capture  play and record a screenshot per frame, for assembling a video

frameplay only drives the viewer. Producing the shards (one scalar tag named
frame_NNNN per video frame) is the upstream converter's job.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		zapCfg := zap.NewProductionConfig()
		if cfg.Logging.Format == "console" {
			zapCfg = zap.NewDevelopmentConfig()
		}
		if level, parseErr := zapcore.ParseLevel(cfg.Logging.Level); parseErr == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// initCmd writes a starter config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Writes the default configuration to ` + config.DefaultPath + ` so the
viewer URL, frame bounds, and naming contract can be edited in one place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil {
			return fmt.Errorf("%s already exists", cfgFile)
		}
		if err := config.DefaultConfig().Save(cfgFile); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Wrote " + cfgFile))
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "Config file path")

	// Dedup flags
	dedupCmd.Flags().BoolVar(&dedupWatch, "watch", false, "Keep watching the root and rename shards as they appear")

	// Play flags
	playCmd.Flags().IntVar(&playStart, "start", 0, "First frame index (overrides config)")
	playCmd.Flags().IntVar(&playEnd, "end", 0, "Last frame index (overrides config)")
	playCmd.Flags().DurationVar(&playTick, "tick", 0, "Interval between frames (overrides config)")

	// Capture flags
	captureCmd.Flags().IntVar(&captureStart, "start", 0, "First frame index (overrides config)")
	captureCmd.Flags().IntVar(&captureEnd, "end", 0, "Last frame index (overrides config)")
	captureCmd.Flags().DurationVar(&captureTick, "tick", 0, "Interval between frames (overrides config)")
	captureCmd.Flags().DurationVar(&captureSettle, "settle", 0, "Delay before each screenshot (overrides config)")
	captureCmd.Flags().StringVar(&captureOut, "out", "", "Frame output directory (overrides config)")
	captureCmd.Flags().StringVar(&captureArchive, "archive", "", "Zip the frames here and remove the loose files")
	captureCmd.Flags().BoolVar(&captureFullPage, "full-page", false, "Capture the full page instead of the viewport")
	captureCmd.Flags().BoolVar(&captureResume, "resume", false, "Skip frames already recorded in the manifest")

	// Add commands to root
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(captureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
