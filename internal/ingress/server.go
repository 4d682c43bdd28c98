// Package ingress implements the HTTP surface: POST /payments enqueues a
// submission, GET /payments-summary serves the aggregation (spec §4.6).
package ingress

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/go-rinha/payments-gateway/internal/payment"
	"github.com/go-rinha/payments-gateway/internal/queue"
	"github.com/go-rinha/payments-gateway/internal/store"
	"github.com/go-rinha/payments-gateway/internal/summary"
)

// Server wires the Queue and Store behind gorilla/mux, matching the
// router the teacher's api-gateway already depends on.
type Server struct {
	queue  *queue.Queue
	store  *store.Store
	router *mux.Router
}

// New builds an ingress Server. Call Handler() to get the http.Handler
// to pass to http.Server.
func New(q *queue.Queue, st *store.Store) *Server {
	s := &Server{queue: q, store: st, router: mux.NewRouter()}
	s.router.HandleFunc("/payments", s.handlePayments).Methods(http.MethodPost)
	s.router.HandleFunc("/payments-summary", s.handleSummary).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	return s
}

// Handler returns the http.Handler to serve.
func (s *Server) Handler() http.Handler {
	return s.router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

// handlePayments never returns a 5xx (spec §7): parse failures reply
// 400, anything that parses is queued and acknowledged 200 even though
// actual dispatch happens asynchronously.
func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	p, err := payment.ParseRequest(body, time.Now())
	if err != nil {
		if errors.Is(err, payment.ErrInvalidPayment) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ingress: unexpected parse error: %v", err)
		writeError(w, http.StatusBadRequest, "invalid payment")
		return
	}

	s.queue.Send(p)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from, err := parseOptionalTime(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be RFC-3339")
		return
	}
	to, err := parseOptionalTime(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be RFC-3339")
		return
	}

	lo, hi := summary.Window(from, to, now)
	resp := summary.Compute(s.store, lo, hi)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("ingress: failed to encode summary response: %v", err)
	}
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
