// Package ranking computes the ranked display order of marketplace listings.
// It is intentionally small and dependency-free, but engineered with
// production-grade ergonomics:
//
//   - No logging and no I/O in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Pure: the output order is a function of (candidates, context) only,
//     so identical inputs always yield identical output
//   - Deterministic tie-breaking (listing id, never insertion order)
//   - Sensible defaults (fairness window, load sensitivity)
//
// Scoring combines a reputation base with a boost multiplier that decays
// linearly over the final 30% of the boost window, dampened by system load:
//
//	base  = rating*2 + log1p(reviews)
//	score = base * (1 + bonus * max(0, 1 - load*sensitivity))
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

// Candidate is a read-only snapshot of one listing supplied by the caller
// for a single ranking pass.
type Candidate struct {
	ListingID   string              `json:"listing_id"`
	BaseRating  float64             `json:"base_rating"`
	ReviewCount int                 `json:"review_count"`
	Class       domain.ContentClass `json:"class"`
	Boost       *domain.BoostRecord `json:"boost,omitempty"`
}

// Context carries the per-call ranking inputs. It is transient: constructed
// for one call and never persisted.
type Context struct {
	Now           time.Time                       `json:"now"`
	SystemLoad    float64                         `json:"system_load"` // 0..1
	FairnessQuota map[domain.ContentClass]float64 `json:"fairness_quota,omitempty"`
	WindowSize    int                             `json:"window_size"`
}

// decayOnset is the elapsed fraction at which a boost's multiplier starts
// its linear decay toward baseline. An abrupt loss at expiry would create a
// visible ranking cliff; the tail smooths it.
const decayOnset = 0.7

// ----------------------------------------------------------------------------
// Options

// Option customizes a Ranker.
type Option func(*config)

type config struct {
	loadSensitivity float64
	defaultWindow   int
}

func defaultConfig() config {
	return config{
		loadSensitivity: 1.0,
		defaultWindow:   10,
	}
}

// WithLoadSensitivity sets how strongly system load shrinks boost bonuses.
// At sensitivity s and load l the bonus is scaled by max(0, 1-l*s). Negative
// values are ignored.
func WithLoadSensitivity(s float64) Option {
	return func(c *config) {
		if s >= 0 {
			c.loadSensitivity = s
		}
	}
}

// WithDefaultWindow sets the fairness window used when the per-call Context
// does not specify one. Non-positive values are ignored.
func WithDefaultWindow(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.defaultWindow = n
		}
	}
}

// ----------------------------------------------------------------------------
// Ranker

// Ranker produces ranked listing orders. It holds configuration only; all
// per-call state arrives through Context, so a single Ranker is safe for
// arbitrarily many concurrent Rank calls.
type Ranker struct {
	cfg config
}

// New constructs a Ranker.
func New(opts ...Option) *Ranker {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Ranker{cfg: cfg}
}

// Score computes the visibility score for a single candidate. Exposed so
// callers (and tests) can inspect the scoring of individual listings.
func (r *Ranker) Score(c Candidate, ctx Context) float64 {
	base := c.BaseRating*2 + math.Log1p(float64(c.ReviewCount))
	bonus := boostBonus(c.Boost, ctx.Now)
	if bonus > 0 {
		damp := 1 - clamp01(ctx.SystemLoad)*r.cfg.loadSensitivity
		if damp < 0 {
			damp = 0
		}
		bonus *= damp
	}
	return base * (1 + bonus)
}

// boostBonus returns the undampened bonus contributed by an active or
// expiring boost: intensity/100 at full strength, decaying linearly to zero
// between decayOnset and expiry. Anything else (nil, terminal, negative
// duration) contributes nothing.
func boostBonus(b *domain.BoostRecord, now time.Time) float64 {
	if b == nil {
		return 0
	}
	if b.State != domain.BoostActive && b.State != domain.BoostExpiring {
		return 0
	}
	frac := b.ElapsedFraction(now)
	if frac >= 1 {
		return 0
	}
	full := float64(b.Intensity) / 100
	if frac <= decayOnset {
		return full
	}
	return full * (1 - frac) / (1 - decayOnset)
}

// Rank returns the candidates in display order, highest visibility first.
//
// The pass is deterministic: candidates are scored, sorted descending with
// ties broken by listing id, then a fairness pass walks the provisional
// order and defers any candidate whose content class has already filled its
// quota share of the top-N window. Deferred candidates keep their
// score-ordered position among the remainder, so relative order within a
// class never changes.
//
// The input slice is not modified.
func (r *Ranker) Rank(candidates []Candidate, ctx Context) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	window := ctx.WindowSize
	if window <= 0 {
		window = r.cfg.defaultWindow
	}

	type scored struct {
		c     Candidate
		score float64
	}
	provisional := make([]scored, len(candidates))
	for i, c := range candidates {
		provisional[i] = scored{c: c, score: r.Score(c, ctx)}
	}
	sort.Slice(provisional, func(i, j int) bool {
		if provisional[i].score != provisional[j].score {
			return provisional[i].score > provisional[j].score
		}
		return provisional[i].c.ListingID < provisional[j].c.ListingID
	})

	if len(ctx.FairnessQuota) == 0 || len(provisional) <= 1 {
		out := make([]Candidate, len(provisional))
		for i, s := range provisional {
			out[i] = s.c
		}
		return out
	}

	// Per-class caps for the window. A class absent from the quota map is
	// uncapped.
	caps := make(map[domain.ContentClass]int, len(ctx.FairnessQuota))
	for class, share := range ctx.FairnessQuota {
		caps[class] = int(math.Floor(share*float64(window) + 1e-9))
	}

	out := make([]Candidate, 0, len(provisional))
	rest := make([]Candidate, 0, len(provisional))
	taken := make(map[domain.ContentClass]int)

	for _, s := range provisional {
		if len(out) >= window {
			rest = append(rest, s.c)
			continue
		}
		if limit, capped := caps[s.c.Class]; capped && taken[s.c.Class] >= limit {
			rest = append(rest, s.c)
			continue
		}
		taken[s.c.Class]++
		out = append(out, s.c)
	}
	return append(out, rest...)
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
