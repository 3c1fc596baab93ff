// Package player reconstructs frame playback by driving the viewer's tag
// filter control through the frame range, one frame per tick. The player owns
// the filter control for the duration of a run; it is the only writer.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"frameplay/internal/frame"

	"go.uber.org/zap"
)

// FilterControl is the viewer's single-line filter input. SetFilter must
// write the value and notify the host UI the way a live keystroke edit
// would: a bubbling value-changed signal followed by a bubbling
// value-committed signal, so reactive subscribers re-filter and re-render.
type FilterControl interface {
	SetFilter(ctx context.Context, value string) error
}

// State is the player lifecycle. Done is terminal; a Player cannot restart.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAlreadyStarted is returned by Run once the player has left Idle.
var ErrAlreadyStarted = errors.New("player already started")

// TickFunc observes a completed tick, after the tick's notifications have
// been dispatched. Returning an error halts the schedule like a dispatch
// failure would.
type TickFunc func(ctx context.Context, index int, tag string) error

// Config holds the playback parameters.
type Config struct {
	Frames       frame.Range
	TickInterval time.Duration

	// OnTick, when set, runs after each tick's dispatch. Used by the
	// capture pipeline to record the rendered frame.
	OnTick TickFunc
}

// Player is the single-goroutine tick state machine. Not safe for
// concurrent use: Run, State and Current belong to the operating goroutine.
type Player struct {
	cfg     Config
	control FilterControl
	logger  *zap.Logger

	state   State
	current int
}

// New creates an idle player over the given filter control.
func New(cfg Config, control FilterControl, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{cfg: cfg, control: control, logger: logger}
}

// State returns the lifecycle state.
func (p *Player) State() State { return p.state }

// Current returns the frame cursor. After a halted run it holds the index
// of the tick that failed.
func (p *Player) Current() int { return p.current }

// Run executes the playback schedule and blocks until the range is
// exhausted, the context is cancelled, or a tick fails.
//
// An inverted range transitions straight to Done with zero ticks. A
// dispatch or hook error propagates unretried: the cursor freezes at the
// failing index, no further ticks are scheduled, and the state stays
// Running so the stall is visible to the operator. The player never checks
// that a requested tag was ingested; a miss is the viewer's empty render,
// not a playback error.
func (p *Player) Run(ctx context.Context) error {
	if p.state != StateIdle {
		return ErrAlreadyStarted
	}
	p.current = p.cfg.Frames.Lower
	if p.cfg.Frames.Count() == 0 {
		p.state = StateDone
		p.logger.Info("frame range is empty, nothing to play",
			zap.Int("lower", p.cfg.Frames.Lower),
			zap.Int("upper", p.cfg.Frames.Upper))
		return nil
	}

	p.state = StateRunning
	p.logger.Info("playback started",
		zap.String("frames", p.cfg.Frames.String()),
		zap.Int("count", p.cfg.Frames.Count()),
		zap.Duration("tick", p.cfg.TickInterval))

	for {
		tag := frame.Tag(p.current)
		if err := p.control.SetFilter(ctx, tag); err != nil {
			return fmt.Errorf("set filter %q: %w", tag, err)
		}
		if p.cfg.OnTick != nil {
			if err := p.cfg.OnTick(ctx, p.current, tag); err != nil {
				return fmt.Errorf("tick %q: %w", tag, err)
			}
		}
		if p.current == p.cfg.Frames.Upper {
			// Terminal transition happens immediately after the last
			// tick, without waiting out another interval.
			p.state = StateDone
			p.logger.Info("playback complete", zap.Int("frames", p.cfg.Frames.Count()))
			return nil
		}
		p.current++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.TickInterval):
		}
	}
}
