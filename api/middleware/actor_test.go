package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/calderhq/storefront-backend/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestActorRequiredForMutations(t *testing.T) {
	handler := Actor(newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without actor header, got %d", rr.Code)
	}
}

func TestActorInvalidUUIDRejected(t *testing.T) {
	handler := Actor(newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/abc", nil)
	req.Header.Set("X-Actor-Id", "not-a-uuid")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed actor id, got %d", rr.Code)
	}
}

func TestActorSkippedForReads(t *testing.T) {
	var sawActor uuid.UUID
	handler := Actor(newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawActor = ActorIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected reads to pass without actor header, got %d", rr.Code)
	}
	if sawActor != uuid.Nil {
		t.Fatalf("expected nil actor id for anonymous read, got %s", sawActor)
	}
}

func TestActorPropagatedToContext(t *testing.T) {
	actorID := uuid.New()
	var sawActor uuid.UUID
	handler := Actor(newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawActor = ActorIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/brands", strings.NewReader("{}"))
	req.Header.Set("X-Actor-Id", actorID.String())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected handler to run, got %d", rr.Code)
	}
	if sawActor != actorID {
		t.Fatalf("expected actor %s in context, got %s", actorID, sawActor)
	}
}
