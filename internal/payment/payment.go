// Package payment defines the Payment value object and its JSON codec.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPayment is wrapped by every parse/validation failure, so
// ingress can uniformly treat them as the spec's abstract ParseError kind.
var ErrInvalidPayment = errors.New("invalid payment")

// Payment is a submission value object. It is never mutated after
// construction — CorrelationID is opaque, RequestedAt is populated at
// ingress time when absent from the request body.
type Payment struct {
	CorrelationID string
	Amount        float64
	RequestedAt   time.Time
}

// wireFormat mirrors the JSON shape in spec §6/§4.5: camelCase fields,
// RequestedAt as RFC-3339.
type wireFormat struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
	RequestedAt   *string `json:"requestedAt,omitempty"`
}

// ParseRequest decodes an ingress POST /payments body. RequestedAt is
// optional on input; when absent it is populated with now (UTC).
func ParseRequest(data []byte, now time.Time) (Payment, error) {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrInvalidPayment, err)
	}

	if _, err := uuid.Parse(w.CorrelationID); err != nil {
		return Payment{}, fmt.Errorf("%w: correlationId is not a valid uuid", ErrInvalidPayment)
	}
	if w.Amount <= 0 || math.IsNaN(w.Amount) || math.IsInf(w.Amount, 0) {
		return Payment{}, fmt.Errorf("%w: amount must be a positive finite number", ErrInvalidPayment)
	}

	requestedAt := now.UTC()
	if w.RequestedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *w.RequestedAt)
		if err != nil {
			return Payment{}, fmt.Errorf("%w: requestedAt is not RFC-3339: %v", ErrInvalidPayment, err)
		}
		requestedAt = t.UTC()
	}

	return Payment{
		CorrelationID: w.CorrelationID,
		Amount:        w.Amount,
		RequestedAt:   requestedAt,
	}, nil
}

// MarshalUpstream encodes the payment for the POST /payments call made
// against an upstream processor (spec §4.5): camelCase fields,
// RequestedAt in RFC-3339 with timezone.
func (p Payment) MarshalUpstream() ([]byte, error) {
	ts := p.RequestedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(wireFormat{
		CorrelationID: p.CorrelationID,
		Amount:        p.Amount,
		RequestedAt:   &ts,
	})
}

// AmountCents converts the float amount to integer minor units for
// accumulation in the Store, avoiding float summation drift
// (see SPEC_FULL.md §3).
func (p Payment) AmountCents() int64 {
	return ToCents(p.Amount)
}

// ToCents rounds a decimal amount to integer cents.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a float64 amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// Key is the Store's index key: requestedAt at nanosecond resolution.
func (p Payment) Key() int64 {
	return p.RequestedAt.UnixNano()
}
