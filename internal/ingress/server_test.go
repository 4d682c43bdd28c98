package ingress_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rinha/payments-gateway/internal/dispatcher"
	"github.com/go-rinha/payments-gateway/internal/health"
	"github.com/go-rinha/payments-gateway/internal/ingress"
	"github.com/go-rinha/payments-gateway/internal/queue"
	"github.com/go-rinha/payments-gateway/internal/store"
	"github.com/go-rinha/payments-gateway/internal/upstream"
)

type summaryBucket struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

type summaryResponse struct {
	Default  summaryBucket `json:"default"`
	Fallback summaryBucket `json:"fallback"`
}

// mockUpstream is an httptest-backed processor whose POST and health
// status codes/bodies can be changed mid-test, per spec §8's scenarios.
type mockUpstream struct {
	postStatus   int32
	healthFailing int32 // 0 or 1, read atomically
	srv          *httptest.Server
}

func newMockUpstream(t *testing.T, postStatus int, healthFailing bool) *mockUpstream {
	t.Helper()
	m := &mockUpstream{}
	atomic.StoreInt32(&m.postStatus, int32(postStatus))
	if healthFailing {
		atomic.StoreInt32(&m.healthFailing, 1)
	}
	m.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments":
			w.WriteHeader(int(atomic.LoadInt32(&m.postStatus)))
		case "/payments/service-health":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]bool{"failing": atomic.LoadInt32(&m.healthFailing) == 1})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *mockUpstream) setPostStatus(status int) { atomic.StoreInt32(&m.postStatus, int32(status)) }
func (m *mockUpstream) setFailing(failing bool) {
	v := int32(0)
	if failing {
		v = 1
	}
	atomic.StoreInt32(&m.healthFailing, v)
}
func (m *mockUpstream) upstream(kind upstream.Kind) upstream.Upstream {
	return upstream.Upstream{Kind: kind, Addr: m.srv.Listener.Addr().String()}
}

type harness struct {
	gateway *httptest.Server
	store   *store.Store
	view    *health.View
	dsp     *dispatcher.Dispatcher
}

func newHarness(t *testing.T, def, fb *mockUpstream) *harness {
	t.Helper()
	q := queue.NewSharded(1024, 2)
	st := store.New()
	view := health.NewView()
	view.Set(upstream.Default, true)
	view.Set(upstream.Fallback, true)

	dsp := dispatcher.New(q, st, view, def.upstream(upstream.Default), fb.upstream(upstream.Fallback), dispatcher.NewHTTPClient())
	dsp.Start()
	t.Cleanup(dsp.Stop)

	srv := ingress.New(q, st)
	gw := httptest.NewServer(srv.Handler())
	t.Cleanup(gw.Close)

	return &harness{gateway: gw, store: st, view: view, dsp: dsp}
}

func (h *harness) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(h.gateway.URL+"/payments", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func (h *harness) summary(t *testing.T, from, to string) summaryResponse {
	t.Helper()
	url := h.gateway.URL + "/payments-summary"
	if from != "" || to != "" {
		url += "?from=" + from + "&to=" + to
	}
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out summaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestScenario1_HappyPath(t *testing.T) {
	def := newMockUpstream(t, http.StatusOK, false)
	fb := newMockUpstream(t, http.StatusOK, false)
	h := newHarness(t, def, fb)

	resp := h.post(t, `{"correlationId":"00000000-0000-0000-0000-000000000001","amount":10.0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		s := h.summary(t, "1970-01-01T00:00:00Z", "2100-01-01T00:00:00Z")
		return s.Default.TotalRequests == 1
	}, time.Second, 5*time.Millisecond)

	s := h.summary(t, "1970-01-01T00:00:00Z", "2100-01-01T00:00:00Z")
	assert.Equal(t, int64(1), s.Default.TotalRequests)
	assert.InDelta(t, 10.0, s.Default.TotalAmount, 0.001)
	assert.Equal(t, int64(0), s.Fallback.TotalRequests)
}

func TestScenario2_FailoverOn5xx(t *testing.T) {
	def := newMockUpstream(t, http.StatusInternalServerError, false)
	fb := newMockUpstream(t, http.StatusOK, false)
	h := newHarness(t, def, fb)

	resp := h.post(t, `{"correlationId":"00000000-0000-0000-0000-000000000002","amount":10.0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		s := h.summary(t, "", "")
		return s.Fallback.TotalRequests == 1
	}, 2*time.Second, 5*time.Millisecond)

	s := h.summary(t, "", "")
	assert.Equal(t, int64(0), s.Default.TotalRequests)
	assert.Equal(t, int64(1), s.Fallback.TotalRequests)
}

func TestScenario3_NoHealthyUpstream_RecoversAfterRestore(t *testing.T) {
	def := newMockUpstream(t, http.StatusInternalServerError, true)
	fb := newMockUpstream(t, http.StatusInternalServerError, true)
	h := newHarness(t, def, fb)
	h.view.Set(upstream.Default, false)
	h.view.Set(upstream.Fallback, false)

	resp := h.post(t, `{"correlationId":"00000000-0000-0000-0000-000000000003","amount":10.0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)
	s := h.summary(t, "", "")
	assert.Equal(t, int64(0), s.Default.TotalRequests)
	assert.Equal(t, int64(0), s.Fallback.TotalRequests)

	def.setPostStatus(http.StatusOK)
	def.setFailing(false)
	h.view.Set(upstream.Default, true)

	require.Eventually(t, func() bool {
		return h.summary(t, "", "").Default.TotalRequests == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScenario4_RangeQuery(t *testing.T) {
	def := newMockUpstream(t, http.StatusOK, false)
	fb := newMockUpstream(t, http.StatusOK, false)
	h := newHarness(t, def, fb)

	h.post(t, `{"correlationId":"00000000-0000-0000-0000-000000000010","amount":1.0,"requestedAt":"2024-01-01T00:00:00Z"}`)
	h.post(t, `{"correlationId":"00000000-0000-0000-0000-000000000011","amount":2.0,"requestedAt":"2024-01-02T00:00:00Z"}`)
	h.post(t, `{"correlationId":"00000000-0000-0000-0000-000000000012","amount":4.0,"requestedAt":"2024-01-03T00:00:00Z"}`)

	require.Eventually(t, func() bool {
		return h.summary(t, "1970-01-01T00:00:00Z", "2100-01-01T00:00:00Z").Default.TotalRequests == 3
	}, time.Second, 5*time.Millisecond)

	s := h.summary(t, "2024-01-02T00:00:00Z", "2024-01-03T00:00:00Z")
	assert.Equal(t, int64(2), s.Default.TotalRequests)
	assert.InDelta(t, 6.0, s.Default.TotalAmount, 0.001)
}

func TestScenario5_UnknownRoute(t *testing.T) {
	def := newMockUpstream(t, http.StatusOK, false)
	fb := newMockUpstream(t, http.StatusOK, false)
	h := newHarness(t, def, fb)

	req, err := http.NewRequest(http.MethodDelete, h.gateway.URL+"/anything", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostPayments_MalformedBodyReplies400(t *testing.T) {
	def := newMockUpstream(t, http.StatusOK, false)
	fb := newMockUpstream(t, http.StatusOK, false)
	h := newHarness(t, def, fb)

	resp := h.post(t, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostPayments_InvalidUUIDReplies400(t *testing.T) {
	def := newMockUpstream(t, http.StatusOK, false)
	fb := newMockUpstream(t, http.StatusOK, false)
	h := newHarness(t, def, fb)

	resp := h.post(t, `{"correlationId":"not-a-uuid","amount":10.0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
