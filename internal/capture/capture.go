// Package capture replays the frame range through the playback driver and
// records one screenshot per rendered frame, optionally zipping the result.
// The driver stays the sole writer of the filter control; capture splits
// work between the tick goroutine (settle + screenshot) and a writer
// goroutine (disk + manifest) so slow disks do not stretch the tick cadence
// more than one frame's worth.
package capture

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"frameplay/internal/frame"
	"frameplay/internal/manifest"
	"frameplay/internal/player"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Screenshotter captures the viewer page as a PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// Config holds the recording parameters.
type Config struct {
	Frames       frame.Range
	TickInterval time.Duration

	// SettleDelay is how long to wait after a tick's notifications before
	// screenshotting, giving the viewer time to re-render. Rendering is
	// asynchronous and unobserved, so this is a pragmatic pause, not a
	// synchronization point.
	SettleDelay time.Duration

	OutDir   string
	FullPage bool

	// ArchivePath, when set, zips the captured frames there and removes
	// the loose files afterwards.
	ArchivePath string

	// Resume skips frames already present in the manifest.
	Resume bool

	// ViewerURL is recorded in the manifest for bookkeeping.
	ViewerURL string
}

// Result summarizes a recording run.
type Result struct {
	RunID    string
	Captured int
	Skipped  int
	Elapsed  time.Duration
}

// Pipeline wires the playback driver to a screenshotter and the manifest.
type Pipeline struct {
	cfg     Config
	control player.FilterControl
	shot    Screenshotter
	store   *manifest.Store
	logger  *zap.Logger
}

// New creates a capture pipeline. store may be nil, which disables the
// manifest (and with it, resume).
func New(cfg Config, control player.FilterControl, shot Screenshotter, store *manifest.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, control: control, shot: shot, store: store, logger: logger}
}

type frameShot struct {
	index int
	tag   string
	png   []byte
}

// Run plays the configured range and captures each frame. A failure in
// either stage halts the run with the driver's fail-fast semantics; frames
// already written stay written, and a resumed run skips them.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}

	var captured map[int]string
	if p.cfg.Resume && p.store != nil {
		var err error
		captured, err = p.store.CapturedFrames()
		if err != nil {
			return res, err
		}
	}

	if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
		return res, fmt.Errorf("create frame directory: %w", err)
	}
	if p.store != nil {
		if err := p.store.BeginRun(res.RunID, p.cfg.ViewerURL, p.cfg.Frames.Lower, p.cfg.Frames.Upper); err != nil {
			return res, err
		}
	}

	shots := make(chan frameShot, 8)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(shots)
		pl := player.New(player.Config{
			Frames:       p.cfg.Frames,
			TickInterval: p.cfg.TickInterval,
			OnTick: func(ctx context.Context, index int, tag string) error {
				if _, done := captured[index]; done {
					res.Skipped++
					return nil
				}
				if p.cfg.SettleDelay > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(p.cfg.SettleDelay):
					}
				}
				png, err := p.shot.Screenshot(ctx, p.cfg.FullPage)
				if err != nil {
					return fmt.Errorf("screenshot %s: %w", tag, err)
				}
				select {
				case shots <- frameShot{index: index, tag: tag, png: png}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			},
		}, p.control, p.logger)
		return pl.Run(gctx)
	})

	g.Go(func() error {
		for shot := range shots {
			file := filepath.Join(p.cfg.OutDir, shot.tag+".png")
			if err := os.WriteFile(file, shot.png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			if p.store != nil {
				if err := p.store.RecordFrame(res.RunID, shot.index, shot.tag, file); err != nil {
					return err
				}
			}
			res.Captured++
			p.logger.Debug("frame captured",
				zap.String("tag", shot.tag),
				zap.String("file", file))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		res.Elapsed = time.Since(start)
		return res, err
	}

	if p.store != nil {
		if err := p.store.CompleteRun(res.RunID); err != nil {
			return res, err
		}
	}
	if p.cfg.ArchivePath != "" {
		if err := p.archive(); err != nil {
			return res, err
		}
		p.logger.Info("frames archived", zap.String("archive", p.cfg.ArchivePath))
	}

	res.Elapsed = time.Since(start)
	p.logger.Info("capture complete",
		zap.Int("captured", res.Captured),
		zap.Int("skipped", res.Skipped),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// archive zips every captured PNG and removes the loose frame directory.
func (p *Pipeline) archive() error {
	out, err := os.Create(p.cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.Walk(p.cfg.OutDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".png" {
			return nil
		}
		entry, err := zw.Create(filepath.Base(path))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archive frames: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return os.RemoveAll(p.cfg.OutDir)
}
