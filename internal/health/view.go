// Package health tracks upstream liveness: a shared View updated by a
// periodic Probe and by the Dispatcher's in-band failure feedback
// (spec §4.3/§4.8).
package health

import (
	"sync"

	"github.com/go-rinha/payments-gateway/internal/upstream"
)

// View is the two-slot healthy/unhealthy map the spec's §9 redesign
// note calls for: exactly two upstreams, so a fixed-size array beats a
// hashed map keyed by address. Absent == not healthy (spec §3).
type View struct {
	mu      sync.RWMutex
	healthy [2]bool // indexed by upstream.Kind
}

// NewView returns a View with both upstreams initially unhealthy
// (Unknown, spec §4.8, is folded into "not healthy").
func NewView() *View {
	return &View{}
}

// IsHealthy reports whether kind's most recent probe or in-band signal
// was a success.
func (v *View) IsHealthy(kind upstream.Kind) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.healthy[kind]
}

// Set records a probe or in-band outcome for kind. Writes are atomic per
// key — concurrent readers see either the pre- or post-update value,
// never a torn one (spec §5).
func (v *View) Set(kind upstream.Kind, healthy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.healthy[kind] = healthy
}

// Demote is Dispatcher's in-band failure feedback: a 5xx/transport
// failure sets healthy := false immediately, without waiting for the
// next probe tick (spec §4.5 design rationale).
func (v *View) Demote(kind upstream.Kind) {
	v.Set(kind, false)
}
