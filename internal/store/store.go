// Package store holds the time-indexed payment ledger (spec §4.1). Each
// UpstreamKind gets its own independent ordered map from requestedAt
// (int64 nanoseconds since epoch) to an amount in cents.
//
// No third-party ordered-map/B-tree library was found anywhere in the
// retrieved corpus, so each kind is a plain sorted slice guarded by its
// own sync.RWMutex — multi-reader, single-writer, exactly as spec §4.1
// requires, with writer preference coming for free from RWMutex.
package store

import (
	"sort"
	"sync"

	"github.com/go-rinha/payments-gateway/internal/upstream"
)

type entry struct {
	ts    int64
	cents int64
}

// Store is a per-kind, time-ordered ledger of confirmed payments.
type Store struct {
	mu      [2]sync.RWMutex // indexed by upstream.Kind
	ledgers [2][]entry      // indexed by upstream.Kind
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Insert records a confirmed payment for the given kind, keyed by ts
// (requestedAt, not confirmation time). Idempotent at the key level: a
// second insert at the same ts replaces the first, per spec §3/§4.1.
//
// The insert position is found in O(log n) via sort.Search, but an
// out-of-order ts (anything other than the new maximum) then shifts
// every entry after it one slot via append+copy, which is O(n) in the
// worst case — this only matches spec §4.1's O(log n) bound for the
// common case of monotonically increasing timestamps (the append-at-
// end fast path). See DESIGN.md for why a true O(log n)-insert ordered
// structure wasn't available in the retrieved corpus.
func (s *Store) Insert(kind upstream.Kind, ts int64, amountCents int64) {
	s.mu[kind].Lock()
	defer s.mu[kind].Unlock()

	ledger := s.ledgers[kind]
	i := sort.Search(len(ledger), func(i int) bool { return ledger[i].ts >= ts })
	if i < len(ledger) && ledger[i].ts == ts {
		ledger[i].cents = amountCents
		return
	}

	ledger = append(ledger, entry{})
	copy(ledger[i+1:], ledger[i:])
	ledger[i] = entry{ts: ts, cents: amountCents}
	s.ledgers[kind] = ledger
}

// Range returns every (ts, amountCents) pair for kind with from <= ts <=
// to, inclusive at both ends (spec §4.1). The returned slice is a
// snapshot copy, safe to iterate without holding the lock.
func (s *Store) Range(kind upstream.Kind, from, to int64) []struct {
	Ts    int64
	Cents int64
} {
	s.mu[kind].RLock()
	defer s.mu[kind].RUnlock()

	ledger := s.ledgers[kind]
	lo := sort.Search(len(ledger), func(i int) bool { return ledger[i].ts >= from })
	hi := sort.Search(len(ledger), func(i int) bool { return ledger[i].ts > to })

	out := make([]struct {
		Ts    int64
		Cents int64
	}, 0, max(0, hi-lo))
	for _, e := range ledger[lo:max(lo, hi)] {
		out = append(out, struct {
			Ts    int64
			Cents int64
		}{Ts: e.ts, Cents: e.cents})
	}
	return out
}
