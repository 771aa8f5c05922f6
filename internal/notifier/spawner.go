package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Spawner runs fire-and-forget tasks in the background. Go returns before the
// task runs; errors and panics are logged and never reach the caller.
type Spawner struct {
	log *slog.Logger
	wg  sync.WaitGroup
}

func NewSpawner(log *slog.Logger) *Spawner {
	return &Spawner{log: log}
}

// Go starts fn on its own goroutine
func (s *Spawner) Go(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		start := time.Now()
		if err := s.run(fn); err != nil {
			s.log.Error("Background task failed",
				slog.String("task", name),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)
			return
		}

		s.log.Debug("Background task completed",
			slog.String("task", name),
			slog.Duration("duration", time.Since(start)),
		)
	}()
}

func (s *Spawner) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Wait blocks until every spawned task has finished or ctx is done
func (s *Spawner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}
