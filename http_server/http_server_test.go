package http_server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"edmoserver/internal/backend"
	"edmoserver/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.UDPPort = 0
	cfg.SessionLogDir = t.TempDir()

	b, err := backend.New(&cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := chi.NewRouter()
	s := &Server{b: b, router: r}
	r.Get("/healthz", s.healthzHandler)
	r.Get("/sessions", s.listSessionsHandler)
	r.Get("/sessions/{identity}", s.getSessionHandler)
	return s
}

func TestHealthzReportsSessionCount(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["sessions"].(float64) != 0 {
		t.Fatalf("expected 0 sessions, got %v", body["sessions"])
	}
}

func TestGetSessionHandlerReturns404ForUnknownIdentity(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/ghost", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListSessionsHandlerReturnsEmptyArray(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "[]\n" {
		t.Fatalf("expected an empty JSON array, got %q", w.Body.String())
	}
}
