package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/ledger"
	"github.com/oxum-market/go-boost-backend/internal/repo"
)

// ----- Fakes -----

// memBoostRepo is an in-memory BoostRepo safe for concurrent use.
type memBoostRepo struct {
	mu     sync.Mutex
	seq    int
	boosts map[string]*domain.BoostRecord

	discarded []string
}

func newMemBoostRepo() *memBoostRepo {
	return &memBoostRepo{boosts: map[string]*domain.BoostRecord{}}
}

func (r *memBoostRepo) CreateBoost(ctx context.Context, db *gorm.DB, listingID, actorID string, amount domain.Money, intensity int, duration time.Duration, state domain.BoostState) (*domain.BoostRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b := &domain.BoostRecord{
		ID:              fmt.Sprintf("b%d", r.seq),
		ListingID:       listingID,
		ActorID:         actorID,
		Amount:          amount,
		Intensity:       intensity,
		StartedAt:       time.Now().UTC(),
		DurationSeconds: int64(duration / time.Second),
		State:           state,
		Version:         1,
	}
	r.boosts[b.ID] = b
	cp := *b
	return &cp, nil
}

func (r *memBoostRepo) GetBoost(ctx context.Context, db *gorm.DB, id string) (*domain.BoostRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boosts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBoostRepo) GetOccupyingBoost(ctx context.Context, db *gorm.DB, listingID string) (*domain.BoostRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.boosts {
		if b.ListingID == listingID && b.State.Occupying() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memBoostRepo) TransitionBoost(ctx context.Context, db *gorm.DB, id string, from, to domain.BoostState, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boosts[id]
	if !ok {
		return repo.ErrNotFound
	}
	if b.State != from || b.Version != version {
		return repo.ErrStale
	}
	b.State = to
	b.Version++
	return nil
}

func (r *memBoostRepo) DiscardBoost(ctx context.Context, db *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boosts[id]
	if !ok || b.State != domain.BoostPending {
		return repo.ErrNotFound
	}
	delete(r.boosts, id)
	r.discarded = append(r.discarded, id)
	return nil
}

func (r *memBoostRepo) CountBoosts(ctx context.Context, db *gorm.DB, actorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.boosts {
		if b.ActorID == actorID {
			n++
		}
	}
	return n, nil
}

func (r *memBoostRepo) ListBoostsPage(ctx context.Context, db *gorm.DB, actorID string, offset, limit int) ([]domain.BoostRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BoostRecord
	for _, b := range r.boosts {
		if b.ActorID == actorID {
			out = append(out, *b)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type approvingValidator struct {
	mu       sync.Mutex
	requests []domain.TransactionRequest
	result   *domain.ValidationResult
	err      error
}

func (v *approvingValidator) Validate(ctx context.Context, req domain.TransactionRequest) (*domain.ValidationResult, error) {
	v.mu.Lock()
	v.requests = append(v.requests, req)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	if v.result != nil {
		return v.result, nil
	}
	return &domain.ValidationResult{RequestID: req.ID, Approved: true, Reason: domain.ReasonApproved}, nil
}

type fakeLedger struct {
	mu     sync.Mutex
	debits []string // references, in order
	err    error
}

func (l *fakeLedger) Debit(ctx context.Context, actorID string, amount domain.Money, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.debits = append(l.debits, reference)
	return nil
}

func newBoostService(r BoostRepo, v TxValidator, l ledger.Gateway) *BoostService {
	return &BoostService{
		Repo:        r,
		Validator:   v,
		Ledger:      l,
		MinDuration: time.Minute,
		MaxDuration: 30 * 24 * time.Hour,
	}
}

// ----- CreateBoost -----

func TestCreateBoost_HappyPath(t *testing.T) {
	r := newMemBoostRepo()
	v := &approvingValidator{}
	l := &fakeLedger{}
	s := newBoostService(r, v, l)

	b, err := s.CreateBoost(context.Background(), "a1", "l1", 505, 50, time.Hour)
	if err != nil {
		t.Fatalf("CreateBoost: %v", err)
	}
	if b.State != domain.BoostActive {
		t.Fatalf("State = %s; want active", b.State)
	}
	if b.Version != 2 {
		t.Fatalf("Version = %d; want 2 after pending->active", b.Version)
	}

	// Validation ran against the boost-purchase category with zero fee.
	if len(v.requests) != 1 || v.requests[0].Category != domain.CategoryBoostPurchase || v.requests[0].Fee != 0 {
		t.Fatalf("validator saw: %+v", v.requests)
	}
	// The debit reference is the boost id, so ledger retries stay idempotent.
	if len(l.debits) != 1 || l.debits[0] != b.ID {
		t.Fatalf("debits = %v; want [%s]", l.debits, b.ID)
	}
}

func TestCreateBoost_InputChecks(t *testing.T) {
	s := newBoostService(newMemBoostRepo(), &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	cases := []struct {
		name    string
		actor   string
		listing string
		amount  domain.Money
		inten   int
		dur     time.Duration
		want    error
	}{
		{"blank actor", " ", "l1", 505, 50, time.Hour, ErrInvalidRequest},
		{"blank listing", "a1", "", 505, 50, time.Hour, ErrInvalidRequest},
		{"zero amount", "a1", "l1", 0, 50, time.Hour, ErrInvalidAmount},
		{"intensity low", "a1", "l1", 505, 0, time.Hour, ErrInvalidIntensity},
		{"intensity high", "a1", "l1", 505, 101, time.Hour, ErrInvalidIntensity},
		{"too short", "a1", "l1", 505, 50, time.Second, ErrInvalidDuration},
		{"too long", "a1", "l1", 505, 50, 365 * 24 * time.Hour, ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.CreateBoost(ctx, tc.actor, tc.listing, tc.amount, tc.inten, tc.dur); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestCreateBoost_ListingOccupied(t *testing.T) {
	r := newMemBoostRepo()
	s := newBoostService(r, &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	if _, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour); err != nil {
		t.Fatalf("first CreateBoost: %v", err)
	}
	_, err := s.CreateBoost(ctx, "a2", "l1", 505, 50, time.Hour)
	if !errors.Is(err, ErrListingOccupied) {
		t.Fatalf("err = %v; want ErrListingOccupied", err)
	}
	// Occupancy is one flavour of state-machine failure, so the broad
	// sentinel must match too.
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v; want it to wrap ErrInvalidStateTransition", err)
	}
}

func TestCreateBoost_RejectionMapping(t *testing.T) {
	cases := []struct {
		reason domain.ReasonCode
		want   error
	}{
		{domain.ReasonPriceMismatch, ErrPriceMismatch},
		{domain.ReasonFeeProhibited, ErrFeeProhibited},
		{domain.ReasonOracleTimeout, ErrOracleUnavailable},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			v := &approvingValidator{result: &domain.ValidationResult{Approved: false, Reason: tc.reason}}
			l := &fakeLedger{}
			s := newBoostService(newMemBoostRepo(), v, l)
			if _, err := s.CreateBoost(context.Background(), "a1", "l1", 505, 50, time.Hour); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
			if len(l.debits) != 0 {
				t.Fatal("rejected purchase must not touch the ledger")
			}
		})
	}
}

func TestCreateBoost_InsufficientBalanceFreesListing(t *testing.T) {
	r := newMemBoostRepo()
	l := &fakeLedger{err: ledger.ErrInsufficientBalance}
	s := newBoostService(r, &approvingValidator{}, l)
	ctx := context.Background()

	if _, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v; want ErrInsufficientBalance", err)
	}
	if len(r.discarded) != 1 {
		t.Fatalf("pending boost not discarded: %v", r.discarded)
	}

	// The listing is free again: a funded retry succeeds.
	l.err = nil
	if _, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour); err != nil {
		t.Fatalf("retry after top-up: %v", err)
	}
}

func TestCreateBoost_LedgerOutage(t *testing.T) {
	r := newMemBoostRepo()
	l := &fakeLedger{err: errors.New("connection refused")}
	s := newBoostService(r, &approvingValidator{}, l)

	_, err := s.CreateBoost(context.Background(), "a1", "l1", 505, 50, time.Hour)
	if !errors.Is(err, ErrLedgerUnavailable) {
		t.Fatalf("err = %v; want ErrLedgerUnavailable", err)
	}
	if len(r.discarded) != 1 {
		t.Fatal("pending boost not discarded after outage")
	}
}

// activationFailRepo fails TransitionBoost a set number of times before
// delegating to the in-memory repo.
type activationFailRepo struct {
	*memBoostRepo
	failures int
}

func (r *activationFailRepo) TransitionBoost(ctx context.Context, db *gorm.DB, id string, from, to domain.BoostState, version int64) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.memBoostRepo.TransitionBoost(ctx, db, id, from, to, version)
}

func TestCreateBoost_ActivationFailureFreesListing(t *testing.T) {
	mem := newMemBoostRepo()
	r := &activationFailRepo{memBoostRepo: mem, failures: 1}
	l := &fakeLedger{}
	s := newBoostService(r, &approvingValidator{}, l)
	ctx := context.Background()

	if _, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour); err == nil {
		t.Fatal("activation failure must surface")
	}
	if len(mem.discarded) != 1 {
		t.Fatalf("pending boost not discarded: %v", mem.discarded)
	}

	// The listing is free again: the retry activates.
	b, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour)
	if err != nil {
		t.Fatalf("retry after activation failure: %v", err)
	}
	if b.State != domain.BoostActive {
		t.Fatalf("State = %s; want active", b.State)
	}
	if len(l.debits) != 2 {
		t.Fatalf("debits = %v; want one per attempt", l.debits)
	}
}

func TestCreateBoost_ConcurrentSameListing(t *testing.T) {
	r := newMemBoostRepo()
	s := newBoostService(r, &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateBoost(ctx, fmt.Sprintf("a%d", i), "l1", 505, 50, time.Hour)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, occupied int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrListingOccupied):
			occupied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || occupied != n-1 {
		t.Fatalf("ok=%d occupied=%d; want exactly one winner", ok, occupied)
	}
}

// ----- CancelBoost -----

func TestCancelBoost_Success(t *testing.T) {
	r := newMemBoostRepo()
	s := newBoostService(r, &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	b, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour)
	if err != nil {
		t.Fatalf("CreateBoost: %v", err)
	}
	got, err := s.CancelBoost(ctx, "a1", b.ID)
	if err != nil {
		t.Fatalf("CancelBoost: %v", err)
	}
	if got.State != domain.BoostCancelled {
		t.Fatalf("State = %s; want cancelled", got.State)
	}

	// The record stays in history; the listing is free for a new boost.
	if _, err := s.Get(ctx, "a1", b.ID); err != nil {
		t.Fatalf("cancelled boost disappeared: %v", err)
	}
	if _, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour); err != nil {
		t.Fatalf("listing should be free after cancel: %v", err)
	}
}

func TestCancelBoost_Errors(t *testing.T) {
	r := newMemBoostRepo()
	s := newBoostService(r, &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	b, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour)
	if err != nil {
		t.Fatalf("CreateBoost: %v", err)
	}

	if _, err := s.CancelBoost(ctx, "someone-else", b.ID); !errors.Is(err, ErrForbiddenBoost) {
		t.Fatalf("foreign actor: err = %v; want ErrForbiddenBoost", err)
	}
	if _, err := s.CancelBoost(ctx, "a1", "missing"); !errors.Is(err, ErrBoostNotFound) {
		t.Fatalf("missing: err = %v; want ErrBoostNotFound", err)
	}

	// Double-cancel hits a terminal state.
	if _, err := s.CancelBoost(ctx, "a1", b.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := s.CancelBoost(ctx, "a1", b.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("double cancel: err = %v; want ErrInvalidStateTransition", err)
	}
}

// ----- Reads -----

func TestGet_HidesForeignBoosts(t *testing.T) {
	r := newMemBoostRepo()
	s := newBoostService(r, &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	b, err := s.CreateBoost(ctx, "a1", "l1", 505, 50, time.Hour)
	if err != nil {
		t.Fatalf("CreateBoost: %v", err)
	}
	if _, err := s.Get(ctx, "a2", b.ID); !errors.Is(err, ErrBoostNotFound) {
		t.Fatalf("foreign read: err = %v; want ErrBoostNotFound", err)
	}
}

func TestListPage_DefaultsAndTotal(t *testing.T) {
	r := newMemBoostRepo()
	s := newBoostService(r, &approvingValidator{}, &fakeLedger{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateBoost(ctx, "a1", fmt.Sprintf("l%d", i), 505, 50, time.Hour); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	items, total, err := s.ListPage(ctx, "a1", 0, 0) // invalid page/pageSize fall back
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("total=%d len=%d; want 3/3", total, len(items))
	}

	empty, total, err := s.ListPage(ctx, "nobody", 1, 10)
	if err != nil || total != 0 || len(empty) != 0 {
		t.Fatalf("empty actor: items=%v total=%d err=%v", empty, total, err)
	}
}
