package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHelpers_GetIdempotencyKey_IsReplay_ActorIDFromCtx(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	// Not set
	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}

	// Set non-string for key → should return false
	c.Set(ctxKeyIdemKey, 123)
	if k, ok := GetIdempotencyKey(c); k != "" || !(!ok) {
		t.Fatalf("expected GetIdempotencyKey to be absent for non-string value")
	}
	// Set bool and check IsReplay=true
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	// Non-bool value shouldn’t panic, should be false
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}

	// actorIDFromCtx fallback
	if got := actorIDFromCtx(c); got != "demo-actor" {
		t.Fatalf("actorIDFromCtx fallback mismatch: %q", got)
	}
	c.Set("actorID", "a1")
	if got := actorIDFromCtx(c); got != "a1" {
		t.Fatalf("actorIDFromCtx with actorID mismatch: %q", got)
	}
	c.Set("actorID", 42) // wrong type → fallback
	if got := actorIDFromCtx(c); got != "demo-actor" {
		t.Fatalf("actorIDFromCtx wrong-type fallback mismatch: %q", got)
	}
	c.Set("actorID", "")
	c.Request.Header.Set("X-Actor-ID", "a-hdr")
	if got := actorIDFromCtx(c); got != "a-hdr" {
		t.Fatalf("actorIDFromCtx header fallback mismatch: %q", got)
	}
}

func TestIdempotencyValidator_NoHeader_NoLookupCalled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookupCalled := false
	lookup := func(_ context.Context, _ string, _ string, _ string, _ time.Time) (bool, error) {
		lookupCalled = true
		return false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.GET("/ping", func(c *gin.Context) {
		// header absent ⇒ no key stashed
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should not be present when header missing")
		}
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if lookupCalled {
		t.Fatalf("lookup should not be called when header missing")
	}
}

func TestIdempotencyValidator_InvalidKey_Length(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{MaxLen: 5}, nil)) // very small
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(HeaderIdempotencyKey, "abcdef") // 6 > 5
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "bad_idempotency_key" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdempotencyValidator_InvalidKey_Pattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// only digits allowed → alpha will fail
	r.Use(IdempotencyValidator(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil))
	r.POST("/y", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/y", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc123") // invalid
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIdempotencyValidator_Valid_NoLookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// MaxLen <= 0 triggers default 200, Pattern nil triggers default regex
	r.Use(IdempotencyValidator(IdempotencyOptions{}, nil))
	r.POST("/z", func(c *gin.Context) {
		key, ok := GetIdempotencyKey(c)
		if !ok || key != "abc-123" {
			t.Fatalf("expected stashed key abc-123, got %q ok=%v", key, ok)
		}
		if IsReplay(c) {
			t.Fatalf("expected IsReplay=false when lookup=nil")
		}
		if IsRateBypass(c) {
			t.Fatalf("expected IsRateBypass=false when lookup=nil")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/z", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc-123") // matches default pattern
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIdempotencyValidator_Valid_WithLookup_MissAndHit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("lookup miss", func(t *testing.T) {
		r := gin.New()
		lookup := func(_ context.Context, actorID, listingID, key string, now time.Time) (bool, error) {
			if actorID == "" || key == "" || now.IsZero() {
				t.Fatalf("lookup args not populated: aid=%q key=%q now=%v", actorID, key, now)
			}
			// When no actor set in context, actorIDFromCtx returns "demo-actor"
			if actorID != "demo-actor" {
				t.Fatalf("expected demo-actor fallback, got %q", actorID)
			}
			if listingID != "l42" {
				t.Fatalf("expected listing id l42 from body, got %q", listingID)
			}
			return false, nil
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
		r.POST("/boosts", func(c *gin.Context) {
			if IsReplay(c) || IsRateBypass(c) {
				t.Fatalf("expected no replay/bypass on miss")
			}
			// Body must still be readable downstream after the peek.
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil || !bytes.Contains(raw, []byte(`"l42"`)) {
				t.Fatalf("body not restored: err=%v raw=%s", err, raw)
			}
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/boosts",
			bytes.NewBufferString(`{"listing_id":"l42","amount_cents":505}`))
		req.Header.Set(HeaderIdempotencyKey, "key-1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("miss: expected 200, got %d", w.Code)
		}
	})

	t.Run("oversized body survives the peek intact", func(t *testing.T) {
		r := gin.New()
		lookup := func(_ context.Context, _ string, _ string, _ string, _ time.Time) (bool, error) {
			return false, nil
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))

		// Payload well past the peek window: the tail beyond maxPeekBytes must
		// still reach the handler byte for byte.
		padding := bytes.Repeat([]byte("x"), maxPeekBytes)
		payload := append([]byte(`{"listing_id":"l42","notes":"`), padding...)
		payload = append(payload, []byte(`","marker":"tail-end"}`)...)

		r.POST("/boosts", func(c *gin.Context) {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if len(raw) != len(payload) {
				t.Fatalf("body truncated: got %d bytes, want %d", len(raw), len(payload))
			}
			if !bytes.HasSuffix(raw, []byte(`"marker":"tail-end"}`)) {
				t.Fatalf("body tail lost past the peek window")
			}
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/boosts", bytes.NewReader(payload))
		req.Header.Set(HeaderIdempotencyKey, "key-big")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("oversized: expected 200, got %d", w.Code)
		}
	})

	t.Run("lookup hit sets replay and bypass, passes actor id", func(t *testing.T) {
		r := gin.New()
		// inject actor before idempotency middleware
		r.Use(func(c *gin.Context) { c.Set("actorID", "a9"); c.Next() })
		lookup := func(_ context.Context, actorID, listingID, key string, _ time.Time) (bool, error) {
			if actorID != "a9" {
				t.Fatalf("expected actorID a9, got %q", actorID)
			}
			if listingID != "abc" || key != "k-9" {
				t.Fatalf("unexpected listingID/key: %q %q", listingID, key)
			}
			return true, nil
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
		r.POST("/boosts", func(c *gin.Context) {
			if !IsReplay(c) {
				t.Fatalf("expected IsReplay=true on hit")
			}
			if !IsRateBypass(c) {
				t.Fatalf("expected IsRateBypass=true on hit")
			}
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/boosts",
			bytes.NewBufferString(`{"listing_id":"abc"}`))
		req.Header.Set(HeaderIdempotencyKey, "k-9")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("hit: expected 200, got %d", w.Code)
		}
	})
}
