// Package adminserver is the broker's only inbound HTTP surface: a small
// internal listener for process supervision (/healthz, /readyz) and metrics
// scraping (/metrics). Clients never reach this surface — they speak to the
// broker exclusively through the AMQP queues described in the package
// dispatch documentation.
package adminserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverglen/reddit-broker/internal/ledger"
	"github.com/riverglen/reddit-broker/internal/logger"
	"github.com/riverglen/reddit-broker/internal/middleware"
)

// Readyer reports whether the broker is ready to accept work. The dispatch
// loop's connection to the inbound queue is the only thing gating this.
type Readyer interface {
	Ready() bool
}

// Server wraps an *http.Server bound to the admin router.
type Server struct {
	httpServer *http.Server
}

// New builds the admin router: security headers, request IDs, and panic
// recovery wrap every route, exactly as the teacher wraps its API router.
func New(addr string, ready Readyer, ledg *ledger.Ledger) *Server {
	r := mux.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyHandler(ready)).Methods(http.MethodGet)
	r.HandleFunc("/debug/ledger", ledgerHandler(ledg)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start runs the admin server until ctx is canceled, then shuts it down
// gracefully with a bounded timeout.
func (s *Server) Start(ctx context.Context) {
	go func() {
		logger.Info("admin server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin server shutdown error", "error", err)
		}
	}()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func readyHandler(ready Readyer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready == nil || !ready.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}

// ledgerHandler exposes the current response-queue count for operator
// visibility; it never surfaces response-queue names or payloads.
func ledgerHandler(ledg *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		count := 0
		if ledg != nil {
			count = ledg.Len()
		}
		w.Write([]byte(`{"tracked_response_queues":` + strconv.Itoa(count) + `}`))
	}
}
