// Package selector picks which upstream a Dispatcher worker should try
// next, strictly preferring Default because it is cheaper (spec §4.4).
package selector

import (
	"github.com/go-rinha/payments-gateway/internal/health"
	"github.com/go-rinha/payments-gateway/internal/upstream"
)

// Selector reads HealthView to choose an upstream. Stateless beyond the
// View reference — safe for concurrent use by every Dispatcher worker.
type Selector struct {
	view *health.View
}

// New builds a Selector over the given HealthView.
func New(view *health.View) *Selector {
	return &Selector{view: view}
}

// Select returns Default if healthy, else Fallback if healthy, else
// (upstream.Kind, false). Preference is strict — never round-robin,
// because Default is cheaper (spec §4.4).
func (s *Selector) Select() (upstream.Kind, bool) {
	if s.view.IsHealthy(upstream.Default) {
		return upstream.Default, true
	}
	if s.view.IsHealthy(upstream.Fallback) {
		return upstream.Fallback, true
	}
	return upstream.Default, false
}
