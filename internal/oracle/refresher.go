package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Refresher keeps the client's quote cache warm by fetching on a fixed
// interval. Validation then reads a recent cache instead of paying a network
// round trip per request.
type Refresher struct {
	client   *Client
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed quote refresher. Non-positive
// intervals default to 30s.
func NewRefresher(client *Client, interval time.Duration, log zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{client: client, interval: interval, log: log}
}

// Start launches the refresh loop. It refreshes once immediately so the
// cache is warm before the first validation arrives. Calling Start on a
// running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.tick(runCtx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info().Dur("interval", r.interval).Msg("oracle refresher started")
	return nil
}

// Stop halts the refresh loop and waits for it to finish, bounded by ctx.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info().Msg("oracle refresher stopped")
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	if err := r.client.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("oracle refresh failed")
	}
}
