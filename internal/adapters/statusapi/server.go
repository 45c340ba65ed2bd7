// Package statusapi is the ambient HTTP surface spec.md §6 asks for
// alongside the callback-driven uiobserver: a small, unauthenticated set of
// operational endpoints a process supervisor or monitoring agent polls
// directly, distinct from the websocket push model. It is grounded on the
// teacher's internal/adapters/web/server Server/Run idiom, trimmed down to
// the handful of routes this scope actually needs.
package statusapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// Source is the read-only view of the consolidation table the /status
// endpoint reports on. *consolidation.Table satisfies it; tests can supply a
// stub instead of standing up a running table.
type Source interface {
	Snapshot() []domain.NetworkRecord
}

// Server serves /healthz, /metrics and /status on its own listen address,
// independent of uiobserver's websocket port.
type Server struct {
	Addr   string
	Source Source

	startedAt time.Time
	srv       *http.Server
}

// NewServer builds a status server bound to addr. Source may be nil before
// the consolidation table starts; /status reports an empty summary until
// it is set.
func NewServer(addr string, source Source) *Server {
	return &Server{Addr: addr, Source: source, startedAt: time.Now()}
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	return r
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails, mirroring the teacher's graceful-shutdown shape.
func (s *Server) Run(ctx context.Context) error {
	instrumented := otelhttp.NewHandler(s.routes(), "wmap-status-api")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumented,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("status API shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("status API shutdown error: %v", err)
		}
	}()

	log.Printf("status API listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type statusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	TotalRecords  int     `json:"total_records"`
	ActiveCount   int     `json:"active_count"`
	NewCount      int     `json:"new_count"`
	InactiveCount int     `json:"inactive_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{UptimeSeconds: time.Since(s.startedAt).Seconds()}

	if s.Source != nil {
		for _, rec := range s.Source.Snapshot() {
			resp.TotalRecords++
			switch rec.Activity {
			case domain.StateActive:
				resp.ActiveCount++
			case domain.StateNew:
				resp.NewCount++
			default:
				resp.InactiveCount++
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
