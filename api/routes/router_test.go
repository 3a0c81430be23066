package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/calderhq/storefront-backend/pkg/config"
	"github.com/calderhq/storefront-backend/pkg/logger"
)

func newTestRouter() http.Handler {
	cfg := &config.Config{
		App:   config.AppConfig{Env: "test", Port: "8080"},
		Media: config.MediaConfig{MaxUploadBytes: 1 << 20, MaxImagesPerProduct: 5},
	}
	logg := logger.New(logger.Options{Output: io.Discard})
	return NewRouter(Dependencies{
		Config:   cfg,
		Logger:   logg,
		Registry: prometheus.NewRegistry(),
	})
}

func TestHealthLiveRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if env := rr.Header().Get("X-Storefront-Env"); env != "test" {
		t.Fatalf("expected env header, got %q", env)
	}

	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data["status"] != "live" {
		t.Fatalf("expected live status, got %v", body.Data)
	}
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rr.Code)
	}
}

func TestMutationsRequireActorHeader(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/brands", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without actor header, got %d", rr.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestReadRoutesReachControllers(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// No service is wired in this fixture, so reaching the controller
	// surfaces as an internal error rather than a 404.
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from unwired service, got %d", rr.Code)
	}
}
