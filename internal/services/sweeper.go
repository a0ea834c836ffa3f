// Package services – Sweeper
//
// This file implements the background sweeper that advances boost lifecycles
// on wall-clock time: active boosts enter the expiring tail at 90% of their
// duration and expire once the duration fully elapses. Every move is an
// optimistic compare-and-swap, so a sweep racing a cancellation simply loses
// and picks the record up (or not) on the next tick.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/repo"
)

// boostTransitions counts lifecycle transitions applied by the sweeper,
// labeled by destination state.
var boostTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "boost_sweeper_transitions_total",
		Help: "Total number of boost lifecycle transitions applied by the sweeper.",
	},
	[]string{"to"},
)

func init() {
	prometheus.MustRegister(boostTransitions)
}

// SweeperRepo is the persistence contract required by the sweeper.
type SweeperRepo interface {
	ListBoostsInStates(ctx context.Context, db *gorm.DB, states ...domain.BoostState) ([]domain.BoostRecord, error)
	TransitionBoost(ctx context.Context, db *gorm.DB, id string, from, to domain.BoostState, version int64) error
}

// Sweeper is a lifecycle-managed background loop advancing boost states.
type Sweeper struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the boost repository used by this sweeper.
	Repo SweeperRepo
	// Interval is the sweep cadence. Non-positive defaults to 5s on Start.
	Interval time.Duration
	// Log receives sweep outcomes.
	Log zerolog.Logger

	// Now is the clock; overridable in tests. Nil means time.Now.
	Now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Start launches the sweep loop. Calling Start on a running sweeper is a
// no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.Interval <= 0 {
		s.Interval = 5 * time.Second
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Sweep(runCtx)
			}
		}
	}()

	s.Log.Info().Dur("interval", s.Interval).Msg("boost sweeper started")
	return nil
}

// Stop halts the sweep loop and waits for it to finish, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.Log.Info().Msg("boost sweeper stopped")
	return nil
}

// Sweep runs one pass over the running boosts and applies any due
// transitions. Exposed so tests (and operational tooling) can drive the
// sweeper without the ticker.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}

	boosts, err := s.Repo.ListBoostsInStates(ctx, s.DB, domain.BoostActive, domain.BoostExpiring)
	if err != nil {
		s.Log.Warn().Err(err).Msg("sweep listing failed")
		return
	}

	for _, b := range boosts {
		if b.State == domain.BoostActive && !now.Before(b.ExpiringAt()) {
			if err := s.transition(ctx, &b, domain.BoostExpiring); err != nil {
				continue
			}
		}
		if b.State == domain.BoostExpiring && !now.Before(b.ExpiresAt()) {
			_ = s.transition(ctx, &b, domain.BoostExpired)
		}
	}
}

// transition applies one CAS move and updates the in-memory record on
// success so a second move in the same pass sees the new state.
func (s *Sweeper) transition(ctx context.Context, b *domain.BoostRecord, to domain.BoostState) error {
	err := s.Repo.TransitionBoost(ctx, s.DB, b.ID, b.State, to, b.Version)
	if err != nil {
		if !errors.Is(err, repo.ErrStale) && !errors.Is(err, repo.ErrNotFound) {
			s.Log.Warn().Err(err).Str("boost_id", b.ID).Str("to", string(to)).Msg("sweep transition failed")
		}
		return err
	}
	boostTransitions.WithLabelValues(string(to)).Inc()
	s.Log.Info().
		Str("boost_id", b.ID).
		Str("listing_id", b.ListingID).
		Str("from", string(b.State)).
		Str("to", string(to)).
		Msg("boost state advanced")
	b.State = to
	b.Version++
	return nil
}
