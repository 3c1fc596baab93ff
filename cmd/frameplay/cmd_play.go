// This file contains the playback command and the shared viewer session
// setup used by play and capture.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"frameplay/internal/browser"
	"frameplay/internal/frame"
	"frameplay/internal/player"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var playCmd = &cobra.Command{
	Use:   "play [url]",
	Short: "Drive the viewer's tag filter through the frame range",
	Long: `Opens the viewer page and writes one frame tag per tick into its
filter input, dispatching the notifications a live keystroke edit would.
Each write makes the viewer re-filter to exactly one frame's scalar plot,
which is what turns a wall of telemetry into motion.

Playback stops on the first dispatch failure and stays stopped; restart the
command to resume from a chosen --start frame.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

var (
	playStart int
	playEnd   int
	playTick  time.Duration
)

func runPlay(cmd *cobra.Command, args []string) error {
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
		frames.Lower = playStart
	}
	if cmd.Flags().Changed("end") {
		frames.Upper = playEnd
	}
	tick := cfg.GetTickInterval()
	if cmd.Flags().Changed("tick") {
		tick = playTick
	}

	sess, ctl, err := openViewer(ctx, url)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Println(headerStyle.Render(fmt.Sprintf("Playing %s (%d frames) against %s", frames, frames.Count(), url)))

	p := player.New(player.Config{Frames: frames, TickInterval: tick}, ctl, logger)
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("playback halted at %s: %w", frame.Tag(p.Current()), err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Playback done: %d frame(s)", frames.Count())))
	return nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()
	return ctx, cancel
}

// viewerBrowserConfig maps the viewer config onto the browser session.
func viewerBrowserConfig() browser.Config {
	return browser.Config{
		DebuggerURL:         cfg.Viewer.DebuggerURL,
		Launch:              cfg.Viewer.Launch,
		Headless:            cfg.Viewer.Headless,
		ViewportWidth:       cfg.Viewer.ViewportWidth,
		ViewportHeight:      cfg.Viewer.ViewportHeight,
		NavigationTimeoutMs: int(cfg.GetNavigationTimeout() / time.Millisecond),
		ElementTimeoutMs:    int(cfg.GetElementTimeout() / time.Millisecond),
	}
}

// openViewer connects a browser, opens the viewer page, and locates the
// filter control. Playback never starts when the control is missing.
func openViewer(ctx context.Context, url string) (*browser.Session, *browser.FilterControl, error) {
	sess, err := browser.Connect(ctx, viewerBrowserConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.Open(ctx, url); err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	ctl, err := sess.FilterControl(ctx, cfg.Viewer.FilterSelector)
	if err != nil {
		_ = sess.Close()
		logger.Error("filter control not found, refusing to start",
			zap.String("selector", cfg.Viewer.FilterSelector))
		return nil, nil, err
	}
	return sess, ctl, nil
}
