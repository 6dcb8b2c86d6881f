// Package http_server implements the HTTP bootstrap surface (C11, spec
// §6): health/status endpoints plus the WebSocket upgrade that onboards a
// new player, adapted from the teacher's chi-routed http_server package.
package http_server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edmoserver/internal/backend"
	"edmoserver/internal/obs"
)

// Server is the HTTP bootstrap surface, routing health/status/onboarding
// requests into the backend.
type Server struct {
	b      *backend.Backend
	router *chi.Mux
	srv    *http.Server
}

// Start builds the router, listens on port, and blocks until ctx is
// cancelled, then gracefully shuts the listener down.
func Start(ctx context.Context, port string, b *backend.Backend) error {
	r := chi.NewRouter()

	s := &Server{
		b:      b,
		router: r,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: r,
		},
	}

	r.Get("/healthz", s.healthzHandler)
	r.Get("/sessions", s.listSessionsHandler)
	r.Get("/sessions/{identity}", s.getSessionHandler)
	r.Get("/ws/{identity}", s.wsHandler)

	serverErr := make(chan error, 1)
	go func() {
		obs.Debugf("starting HTTP server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("error starting HTTP server: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		obs.Debugf("shutting down HTTP server...")
		if err := s.srv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	}

	return nil
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	sendResponseAsJSON(w, map[string]interface{}{
		"status":   "ok",
		"sessions": len(s.b.Sessions()),
	}, http.StatusOK)
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := s.b.Sessions()
	infos := make([]interface{}, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.GetSessionInfo())
	}
	sendResponseAsJSON(w, infos, http.StatusOK)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	sess, ok := s.b.GetSession(identity)
	if !ok {
		http.Error(w, "no active session for "+identity, http.StatusNotFound)
		return
	}
	sendResponseAsJSON(w, sess.GetDetailedInfo(), http.StatusOK)
}
