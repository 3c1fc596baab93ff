package player_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"frameplay/internal/frame"
	"frameplay/internal/player"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingControl captures every filter write.
type recordingControl struct {
	writes []string
	failAt int // 1-based write number to fail on, 0 disables
}

func (c *recordingControl) SetFilter(ctx context.Context, value string) error {
	if c.failAt > 0 && len(c.writes)+1 == c.failAt {
		return fmt.Errorf("dispatch refused at write %d", c.failAt)
	}
	c.writes = append(c.writes, value)
	return nil
}

func TestRunPlaysFullRange(t *testing.T) {
	ctl := &recordingControl{}
	p := player.New(player.Config{
		Frames: frame.Range{Lower: 43, Upper: 6571},
	}, ctl, zap.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := p.State(); got != player.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	if len(ctl.writes) != 6529 {
		t.Fatalf("wrote %d tags, want 6529", len(ctl.writes))
	}
	if ctl.writes[0] != "frame_0043" {
		t.Errorf("first tag = %q, want frame_0043", ctl.writes[0])
	}
	if last := ctl.writes[len(ctl.writes)-1]; last != "frame_6571" {
		t.Errorf("last tag = %q, want frame_6571", last)
	}

	// Strictly increasing by one, no repeats and no gaps.
	want := make([]string, 0, 6529)
	for i := 43; i <= 6571; i++ {
		want = append(want, frame.Tag(i))
	}
	if diff := cmp.Diff(want, ctl.writes); diff != "" {
		t.Errorf("tag sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInvertedRangeIsImmediatelyDone(t *testing.T) {
	ctl := &recordingControl{}
	p := player.New(player.Config{
		Frames: frame.Range{Lower: 10, Upper: 3},
	}, ctl, zap.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := p.State(); got != player.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	if len(ctl.writes) != 0 {
		t.Fatalf("wrote %d tags, want 0", len(ctl.writes))
	}
}

func TestRunCannotRestart(t *testing.T) {
	ctl := &recordingControl{}
	p := player.New(player.Config{
		Frames: frame.Range{Lower: 1, Upper: 2},
	}, ctl, zap.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := p.Run(context.Background()); !errors.Is(err, player.ErrAlreadyStarted) {
		t.Fatalf("second Run = %v, want ErrAlreadyStarted", err)
	}
	if len(ctl.writes) != 2 {
		t.Fatalf("restart wrote extra tags: %v", ctl.writes)
	}
}

func TestRunDispatchFailureFreezesCursor(t *testing.T) {
	ctl := &recordingControl{failAt: 3}
	p := player.New(player.Config{
		Frames: frame.Range{Lower: 5, Upper: 20},
	}, ctl, zap.NewNop())

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run should surface the dispatch failure")
	}
	if len(ctl.writes) != 2 {
		t.Fatalf("wrote %d tags before the fault, want 2", len(ctl.writes))
	}
	if got := p.Current(); got != 7 {
		t.Errorf("cursor = %d, want frozen at 7", got)
	}
	if got := p.State(); got != player.StateRunning {
		t.Errorf("state = %v, want running (stalled, not done)", got)
	}
}

func TestRunHookFailureHaltsSchedule(t *testing.T) {
	ctl := &recordingControl{}
	hookErr := errors.New("disk full")
	p := player.New(player.Config{
		Frames: frame.Range{Lower: 0, Upper: 9},
		OnTick: func(ctx context.Context, index int, tag string) error {
			if index == 4 {
				return hookErr
			}
			return nil
		},
	}, ctl, zap.NewNop())

	err := p.Run(context.Background())
	if !errors.Is(err, hookErr) {
		t.Fatalf("Run = %v, want wrapped hook error", err)
	}
	// The failing tick's notifications were already dispatched.
	if len(ctl.writes) != 5 {
		t.Fatalf("wrote %d tags, want 5", len(ctl.writes))
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctl := &recordingControl{}
	p := player.New(player.Config{
		Frames:       frame.Range{Lower: 0, Upper: 1000000},
		TickInterval: time.Hour,
	}, ctl, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestRunHookSeesEveryTagInOrder(t *testing.T) {
	var seen []string
	ctl := &recordingControl{}
	p := player.New(player.Config{
		Frames: frame.Range{Lower: 98, Upper: 103},
		OnTick: func(ctx context.Context, index int, tag string) error {
			seen = append(seen, tag)
			return nil
		},
	}, ctl, zap.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"frame_0098", "frame_0099", "frame_0100", "frame_0101", "frame_0102", "frame_0103"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("hook sequence mismatch (-want +got):\n%s", diff)
	}
}
