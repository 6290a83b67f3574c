package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_WindowResets(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Close()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("club") || !l.Allow("club") {
		t.Fatal("first two events should be allowed")
	}
	if l.Allow("club") {
		t.Error("third event should be limited")
	}
	if !l.Allow("other") {
		t.Error("keys must be independent")
	}
	if got := l.RetryAfter("club"); got != time.Minute {
		t.Errorf("RetryAfter: got %v, want %v", got, time.Minute)
	}

	now = now.Add(time.Minute + time.Second)
	if !l.Allow("club") {
		t.Error("event after window should be allowed")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Close()

	h := Middleware(l, func(r *http.Request) string { return r.URL.Query().Get("k") })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	serve := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		return rec
	}

	if rec := serve("/?k=a"); rec.Code != http.StatusNoContent {
		t.Errorf("first: got %d, want %d", rec.Code, http.StatusNoContent)
	}
	rec := serve("/?k=a")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec := serve("/"); rec.Code != http.StatusNoContent {
		t.Errorf("unkeyed: got %d, want %d", rec.Code, http.StatusNoContent)
	}
}
