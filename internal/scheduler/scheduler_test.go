package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedule_RejectsBadExpression(t *testing.T) {
	t.Parallel()

	s := New(time.Minute, zerolog.Nop())
	if err := s.Schedule("not a cron spec", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected invalid expression rejected")
	}
	if err := s.Schedule("*/30 * * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
}

func TestTick_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	s := New(time.Minute, zerolog.Nop())

	block := make(chan struct{})
	started := make(chan struct{})
	runs := 0
	tick := s.tick(func(context.Context) error {
		runs++
		close(started)
		<-block
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick()
	}()

	<-started
	// Second tick fires while the first is still in flight.
	tick()
	close(block)
	wg.Wait()

	if runs != 1 {
		t.Fatalf("expected overlapping tick skipped, got %d runs", runs)
	}
}

func TestTick_AppliesRunTimeout(t *testing.T) {
	t.Parallel()

	s := New(50*time.Millisecond, zerolog.Nop())

	var deadlineSet bool
	tick := s.tick(func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})
	tick()

	if !deadlineSet {
		t.Fatalf("expected run context to carry a deadline")
	}
}
