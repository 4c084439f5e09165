// Package scheduler releases booking holds whose lock expired.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/logger"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/retry"
)

const expiryAttempts = 2

type Expirer interface {
	ExpiredLocks(ctx context.Context, limit int) ([]models.Booking, error)
	ExpireLock(ctx context.Context, id string) (bool, error)
}

type Config struct {
	Interval time.Duration
	Batch    int
	Backoff  time.Duration
}

type Result struct {
	Found   int
	Expired int
	Failed  int
}

type Sweeper struct {
	svc     Expirer
	clock   clockwork.Clock
	cfg     Config
	running atomic.Bool
	wg      sync.WaitGroup
}

func NewSweeper(svc Expirer, clock clockwork.Clock, cfg Config) *Sweeper {
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	return &Sweeper{svc: svc, clock: clock, cfg: cfg}
}

// Run sweeps once immediately and then on every interval until ctx is done.
// A tick that fires while a sweep is still running is skipped.
func (s *Sweeper) Run(ctx context.Context) {
	s.launch(ctx)

	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			s.launch(ctx)
		case <-ctx.Done():
			s.wg.Wait()
			slog.Info("lock sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) launch(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Debug("lock sweep still running, skipping tick")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.sweep(ctx)
	}()
}

// SweepOnce runs a sweep in the caller's goroutine. ok is false when another
// sweep was already in progress.
func (s *Sweeper) SweepOnce(ctx context.Context) (res Result, ok bool) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, false
	}
	defer s.running.Store(false)
	return s.sweep(ctx), true
}

func (s *Sweeper) sweep(ctx context.Context) Result {
	ctx = logger.WithRequestID(ctx, "sweep-"+uuid.NewString())
	defer metrics.LockSweepsTotal.Inc()

	var res Result
	due, err := s.svc.ExpiredLocks(ctx, s.cfg.Batch)
	if err != nil {
		slog.ErrorContext(ctx, "list expired locks", "err", err)
		return res
	}
	res.Found = len(due)

	policy := retry.Fixed(expiryAttempts, s.cfg.Backoff)
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "lock expiry failed, retrying", "attempt", attempt, "backoff", backoff, "err", err)
	}
	for _, b := range due {
		if ctx.Err() != nil {
			break
		}
		expired, err := retry.Do(ctx, policy, func(ctx context.Context) (bool, error) {
			ok, err := s.svc.ExpireLock(ctx, b.ID)
			if errors.Is(err, apperr.ErrNotFound) {
				return false, retry.Permanent(err)
			}
			return ok, err
		})
		switch {
		case err != nil:
			res.Failed++
			metrics.LockExpiryFailures.Inc()
			slog.ErrorContext(ctx, "lock expiry gave up", "booking_id", b.ID, "err", err)
		case expired:
			res.Expired++
			metrics.LocksExpiredTotal.Inc()
		}
	}
	if res.Found > 0 {
		slog.InfoContext(ctx, "lock sweep done", "found", res.Found, "expired", res.Expired, "failed", res.Failed)
	}
	return res
}
