// Ranking HTTP handlers.
//
// This file exposes the listing ranking endpoint:
//   - POST /rankings
//
// The caller submits listing snapshots; the engine joins them with the
// occupying boosts, applies the load-dampened scoring and fairness quotas,
// and returns the display order. The endpoint is read-only and safe to call
// at any frequency.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/ranking"
)

// RankCandidate is one listing snapshot submitted for ranking.
type RankCandidate struct {
	// ListingID identifies the listing.
	ListingID string `json:"listing_id" binding:"required" example:"listing-42"`
	// BaseRating is the listing's average review rating (0-5).
	BaseRating float64 `json:"base_rating" example:"4.5"`
	// ReviewCount is the number of reviews behind the rating.
	ReviewCount int `json:"review_count" example:"120"`
	// Class is human or automated; used by fairness quotas.
	Class string `json:"class" example:"human"`
}

// RankRequest is the JSON payload for a ranking pass.
type RankRequest struct {
	// Candidates are the listings to order.
	Candidates []RankCandidate `json:"candidates" binding:"required,min=1"`
	// WindowSize overrides the fairness window (top-N) for this call.
	WindowSize int `json:"window_size" example:"10"`
	// FairnessQuota caps a class's share of the window, e.g. {"automated": 0.3}.
	FairnessQuota map[string]float64 `json:"fairness_quota"`
}

// RankedListing is one entry of the computed display order.
type RankedListing struct {
	Position  int    `json:"position"`
	ListingID string `json:"listing_id"`
	Class     string `json:"class"`
	Boosted   bool   `json:"boosted"`
}

// RankResponse carries the display order plus the inputs the pass used.
type RankResponse struct {
	Listings   []RankedListing `json:"listings"`
	SystemLoad float64         `json:"system_load"`
	WindowSize int             `json:"window_size"`
}

// RankListings godoc
// @ID          rankListings
// @Summary     Compute listing display order
// @Description Scores and orders the submitted listings using reputation, running boosts, time decay, system load, and fairness quotas.
// @Tags        Rankings
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RankRequest  true  "Listings to rank"
//
// @Success     200  {object}  handlers.RankResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rankings [post]
func (h *Handlers) RankListings(c *gin.Context) {
	var req RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	candidates := make([]ranking.Candidate, 0, len(req.Candidates))
	for _, rc := range req.Candidates {
		class := domain.ContentClass(rc.Class)
		if class == "" {
			class = domain.ClassHuman
		}
		if class != domain.ClassHuman && class != domain.ClassAutomated {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown content class")
			return
		}
		candidates = append(candidates, ranking.Candidate{
			ListingID:   rc.ListingID,
			BaseRating:  rc.BaseRating,
			ReviewCount: rc.ReviewCount,
			Class:       class,
		})
	}

	var quota map[domain.ContentClass]float64
	if len(req.FairnessQuota) > 0 {
		quota = make(map[domain.ContentClass]float64, len(req.FairnessQuota))
		for k, v := range req.FairnessQuota {
			if v < 0 || v > 1 {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "quota shares must be within [0,1]")
				return
			}
			quota[domain.ContentClass(k)] = v
		}
	}

	ranked, rctx, err := h.rankSvc.Rank(c.Request.Context(), candidates, quota, req.WindowSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeRankFailed, err.Error())
		return
	}

	out := make([]RankedListing, len(ranked))
	for i, r := range ranked {
		out[i] = RankedListing{
			Position:  i + 1,
			ListingID: r.ListingID,
			Class:     string(r.Class),
			Boosted:   r.Boost != nil && (r.Boost.State == domain.BoostActive || r.Boost.State == domain.BoostExpiring),
		}
	}
	ok(c, http.StatusOK, RankResponse{
		Listings:   out,
		SystemLoad: rctx.SystemLoad,
		WindowSize: rctx.WindowSize,
	})
}
