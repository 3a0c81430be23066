package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryIdempotencyStore struct {
	data map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func newIdempotentHandler(store *memoryIdempotencyStore, hits *int) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"data":{"call":%d}}`, *hits)
	})
	return Idempotency(store, newTestLogger())(inner)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	hits := 0
	handler := newIdempotentHandler(store, &hits)

	body := `{"name":"Widget"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "key-1")
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "key-1")
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, second)

	if hits != 1 {
		t.Fatalf("expected handler to run once, ran %d times", hits)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr1.Body.String() != rr2.Body.String() {
		t.Fatalf("expected identical bodies, got %q and %q", rr1.Body.String(), rr2.Body.String())
	}
	if ct := rr2.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected stored content type replayed, got %q", ct)
	}
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	hits := 0
	handler := newIdempotentHandler(store, &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"name":"Widget"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"name":"Gadget"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, second)

	if hits != 1 {
		t.Fatalf("expected handler to run once, ran %d times", hits)
	}
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new body, got %d", rr.Code)
	}
}

func TestIdempotencyRequiresKeyOnCoveredRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	hits := 0
	handler := newIdempotentHandler(store, &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", rr.Code)
	}
	if hits != 0 {
		t.Fatalf("expected handler not to run, ran %d times", hits)
	}
}

func TestIdempotencyIgnoresUncoveredRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	hits := 0
	handler := newIdempotentHandler(store, &hits)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected handler to run for uncovered route, got %d", rr.Code)
	}
	if hits != 1 {
		t.Fatalf("expected one handler run, got %d", hits)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored for uncovered route, got %d records", len(store.data))
	}
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	store := newMemoryIdempotencyStore()
	hits := 0
	actorAware := Actor(newTestLogger())(newIdempotentHandler(store, &hits))

	send := func(actorID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"name":"Widget"}`))
		req.Header.Set("Idempotency-Key", "shared-key")
		req.Header.Set("X-Actor-Id", actorID)
		rr := httptest.NewRecorder()
		actorAware.ServeHTTP(rr, req)
		return rr
	}

	send("5f4dcc3b-0000-4000-8000-000000000001")
	send("5f4dcc3b-0000-4000-8000-000000000002")

	if hits != 2 {
		t.Fatalf("expected both actors to reach the handler, got %d runs", hits)
	}
}

func TestRouteTTLMatchesNestedWrites(t *testing.T) {
	productID := "0b6f1f6e-9d7a-4f3a-8c72-0c1c8a2f9e11"
	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/products", true},
		{http.MethodPost, "/api/v1/products/" + productID + "/variants", true},
		{http.MethodPost, "/api/v1/products/" + productID + "/images", true},
		{http.MethodPost, "/api/v1/products/" + productID + "/attributes", true},
		{http.MethodGet, "/api/v1/products", false},
		{http.MethodPost, "/api/v1/categories", true},
	}
	for _, tc := range cases {
		if _, got := routeTTL(tc.method, tc.path); got != tc.want {
			t.Fatalf("routeTTL(%s, %s) = %v, want %v", tc.method, tc.path, got, tc.want)
		}
	}
}
