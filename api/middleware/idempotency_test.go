package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func saleRequest(key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/sale", "/api/sale", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotentRoutes(t *testing.T) {
	tests := []struct {
		method  string
		pattern string
		want    bool
	}{
		{http.MethodPost, "/api/sale", true},
		{http.MethodPost, "/api/quickbuy", true},
		{http.MethodGet, "/api/sale", false},
		{http.MethodGet, "/api/member/balance", false},
		{http.MethodPost, "", false},
	}

	for _, tt := range tests {
		if got := idempotent(tt.method, tt.pattern); got != tt.want {
			t.Fatalf("%s %s: expected %v got %v", tt.method, tt.pattern, tt.want, got)
		}
	}
}

func TestIdempotencyMiddlewareWithoutHeaderPassesThrough(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest("", `{"buystring":"1 2"}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest("", `{"buystring":"1 2"}`))

	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("nothing should be recorded without a key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, saleRequest("abc", `{"buystring":"1 2"}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected first response 200 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, saleRequest("abc", `{"buystring":"1 2"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("expected configured ttl, got %v", ttl)
		}
	}
}

func TestIdempotencyMiddlewareDoesNotRecordServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest("retry", `{}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest("retry", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest("xyz", `{"buystring":"1 2"}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, saleRequest("xyz", `{"buystring":"1 3"}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}
