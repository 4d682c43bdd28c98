// Package summary computes the GET /payments-summary aggregation (spec
// §4.7): per-kind totals over an optional [from, to] window.
package summary

import (
	"sync"
	"time"

	"github.com/go-rinha/payments-gateway/internal/payment"
	"github.com/go-rinha/payments-gateway/internal/store"
	"github.com/go-rinha/payments-gateway/internal/upstream"
)

// Totals is the per-kind aggregation shape.
type Totals struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// Response is the full GET /payments-summary body.
type Response struct {
	Default  Totals `json:"default"`
	Fallback Totals `json:"fallback"`
}

// Window resolves the optional from/to query parameters to the
// nanosecond key range Store expects. An absent from defaults to the
// epoch; an absent to defaults to now (spec §4.7).
func Window(from, to *time.Time, now time.Time) (int64, int64) {
	lo := int64(0)
	if from != nil {
		lo = from.UnixNano()
	}
	hi := now.UnixNano()
	if to != nil {
		hi = to.UnixNano()
	}
	return lo, hi
}

// Compute sums both ledgers over [lo, hi] concurrently, since each kind
// holds its own lock in Store and the two ranges are independent reads.
func Compute(st *store.Store, lo, hi int64) Response {
	var def, fb Totals
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		def = totalsFor(st, upstream.Default, lo, hi)
	}()
	go func() {
		defer wg.Done()
		fb = totalsFor(st, upstream.Fallback, lo, hi)
	}()
	wg.Wait()

	return Response{Default: def, Fallback: fb}
}

func totalsFor(st *store.Store, kind upstream.Kind, lo, hi int64) Totals {
	entries := st.Range(kind, lo, hi)
	var cents int64
	for _, e := range entries {
		cents += e.Cents
	}
	return Totals{
		TotalRequests: int64(len(entries)),
		TotalAmount:   payment.FromCents(cents),
	}
}
