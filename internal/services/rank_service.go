// Package services – RankService
//
// This file implements RankService, which assembles a ranking pass: it joins
// the caller's listing snapshots with the occupying boosts from storage,
// samples the current system load, and delegates the actual ordering to the
// pure ranking package.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/ranking"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BoostLookup resolves the occupying boosts for a set of listings.
type BoostLookup interface {
	ListBoostsForListings(ctx context.Context, db *gorm.DB, listingIDs []string) (map[string]domain.BoostRecord, error)
}

// LoadProvider reports current system load in [0,1].
type LoadProvider interface {
	Load() float64
}

// RankService computes display orders for listing snapshots.
type RankService struct {
	// DB is the GORM handle used to resolve boosts.
	DB *gorm.DB
	// Repo resolves occupying boosts per listing.
	Repo BoostLookup
	// Ranker is the pure scoring/ordering engine.
	Ranker *ranking.Ranker
	// Load supplies the dampening signal.
	Load LoadProvider

	// WindowSize is the default fairness window when the caller sends none.
	WindowSize int
	// Quota is the default per-class fairness share when the caller sends none.
	Quota map[domain.ContentClass]float64
}

// Rank orders the given candidates. Candidates arriving without a boost are
// enriched from storage, so callers only need to know their listings. The
// returned context reports the inputs the pass actually used (load, window,
// quota), which the HTTP layer echoes back for observability.
func (s *RankService) Rank(ctx context.Context, candidates []ranking.Candidate, quota map[domain.ContentClass]float64, window int) ([]ranking.Candidate, ranking.Context, error) {
	tr := otel.Tracer("services/RankService")
	ctx, span := tr.Start(ctx, "Rank",
		trace.WithAttributes(attribute.Int("candidates", len(candidates))),
	)
	defer span.End()

	if window <= 0 {
		window = s.WindowSize
	}
	if quota == nil {
		quota = s.Quota
	}

	rctx := ranking.Context{
		Now:           time.Now().UTC(),
		FairnessQuota: quota,
		WindowSize:    window,
	}
	if s.Load != nil {
		rctx.SystemLoad = s.Load.Load()
	}

	// Enrich candidates that did not bring their own boost snapshot.
	var missing []string
	for _, c := range candidates {
		if c.Boost == nil && c.ListingID != "" {
			missing = append(missing, c.ListingID)
		}
	}
	if len(missing) > 0 {
		boosts, err := s.Repo.ListBoostsForListings(ctx, s.DB, missing)
		if err != nil {
			return nil, ranking.Context{}, err
		}
		enriched := make([]ranking.Candidate, len(candidates))
		copy(enriched, candidates)
		for i := range enriched {
			if enriched[i].Boost != nil {
				continue
			}
			if b, ok := boosts[enriched[i].ListingID]; ok {
				bc := b
				enriched[i].Boost = &bc
			}
		}
		candidates = enriched
	}

	span.SetAttributes(attribute.Float64("system_load", rctx.SystemLoad))
	return s.Ranker.Rank(candidates, rctx), rctx, nil
}
