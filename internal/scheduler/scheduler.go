package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

// Advancer is the controller slice the scheduler drives: list broadcasts in
// flight, push each one forward by one batch.
type Advancer interface {
	Sending(ctx context.Context) ([]model.Broadcast, error)
	StartOrResume(ctx context.Context, actor, id int64) error
}

// Scheduler hosts the polling loop the pipeline expects its caller to run:
// every tick, each sending broadcast advances by exactly one batch. The loop
// is cooperative; nothing happens between ticks and stopping it simply
// leaves broadcasts in their current state.
type Scheduler struct {
	interval time.Duration
	advancer Advancer
	actor    int64

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, advancer Advancer, actor int64) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if advancer == nil {
		return nil, errors.New("advancer must not be nil")
	}
	return &Scheduler{
		interval: interval,
		advancer: advancer,
		actor:    actor,
		done:     make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("broadcast scheduler started", "interval", s.interval.String())

		s.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("broadcast scheduler stopping")
				return
			case <-ticker.C:
				s.safeTick(ctx)
			}
		}
	}()

	return true
}

func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	slog.Info("broadcast scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler tick panic recovered", "panic", r)
		}
	}()

	start := time.Now()

	sending, err := s.advancer.Sending(ctx)
	if err != nil {
		slog.Error("could not list sending broadcasts", "error", err)
		return
	}

	for _, b := range sending {
		if err := s.advancer.StartOrResume(ctx, s.actor, b.ID); err != nil {
			slog.Error("batch advance failed", "broadcast_id", b.ID, "error", err)
		}
	}

	slog.Info("scheduler tick completed",
		"broadcasts", len(sending),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
