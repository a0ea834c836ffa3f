// Package load maintains a rolling 0..1 system load signal used to dampen
// paid-boost effects under pressure. A single sampling goroutine writes an
// atomically-swapped snapshot; readers on the hot ranking path never take a
// lock.
package load

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Sampler produces one load observation in [0,1].
type Sampler func(ctx context.Context) (float64, error)

// CPUSampler returns a Sampler backed by the host's aggregate CPU
// utilization. The first call primes gopsutil's internal counters and may
// report 0.
func CPUSampler() Sampler {
	return func(ctx context.Context) (float64, error) {
		pcts, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return 0, err
		}
		if len(pcts) == 0 {
			return 0, nil
		}
		return clamp01(pcts[0] / 100), nil
	}
}

// snapshot is the immutable value swapped on every sample.
type snapshot struct {
	load float64
	at   time.Time
}

// Monitor samples system load on a fixed interval and serves the latest
// observation to concurrent readers. Safe for concurrent use; Load is
// wait-free.
type Monitor struct {
	sampler  Sampler
	interval time.Duration
	log      zerolog.Logger

	snap atomic.Pointer[snapshot]

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewMonitor constructs a Monitor. A nil sampler defaults to CPUSampler.
// Non-positive intervals default to 10s.
func NewMonitor(sampler Sampler, interval time.Duration, log zerolog.Logger) *Monitor {
	if sampler == nil {
		sampler = CPUSampler()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m := &Monitor{sampler: sampler, interval: interval, log: log}
	m.snap.Store(&snapshot{})
	return m
}

// Load returns the most recent load observation in [0,1]. Before the first
// sample completes it returns 0 (no dampening).
func (m *Monitor) Load() float64 {
	return m.snap.Load().load
}

// ObservedAt returns when the current load value was sampled. Zero before
// the first sample.
func (m *Monitor) ObservedAt() time.Time {
	return m.snap.Load().at
}

// Start launches the sampling loop. It samples once immediately so readers
// get a real value without waiting a full interval. Calling Start on a
// running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.sample(runCtx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.sample(runCtx)
			}
		}
	}()

	m.log.Info().Dur("interval", m.interval).Msg("load monitor started")
	return nil
}

// Stop halts the sampling loop and waits for it to finish, bounded by ctx.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.log.Info().Msg("load monitor stopped")
	return nil
}

func (m *Monitor) sample(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	v, err := m.sampler(ctx)
	if err != nil {
		// Keep serving the previous value rather than flapping to zero.
		m.log.Warn().Err(err).Msg("load sample failed")
		return
	}
	m.snap.Store(&snapshot{load: clamp01(v), at: time.Now().UTC()})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
