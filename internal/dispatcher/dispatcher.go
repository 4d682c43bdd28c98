// Package dispatcher drains the Queue and posts payments upstream,
// retrying with backoff and updating Store only on confirmed success
// (spec §4.5).
package dispatcher

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-rinha/payments-gateway/internal/health"
	"github.com/go-rinha/payments-gateway/internal/payment"
	"github.com/go-rinha/payments-gateway/internal/queue"
	"github.com/go-rinha/payments-gateway/internal/selector"
	"github.com/go-rinha/payments-gateway/internal/store"
	"github.com/go-rinha/payments-gateway/internal/upstream"
)

const (
	selectBase  = 50 * time.Millisecond
	selectCap   = 10 * time.Second
	paymentBase = 10 * time.Millisecond
	paymentCap  = 5 * time.Second

	postTimeout = 2 * time.Second
)

// NewHTTPClient builds the pooled client Dispatcher workers share. A
// single shared client is strongly preferred over one-per-attempt
// connections for throughput (spec §4.5) — generalized from the
// teacher's BRUTOConnectionPool, which round-robinned over a slice of
// otherwise-identical *http.Client values; http.Transport already pools
// connections per host internally, so one client does the same job.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: postTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        500,
			MaxIdleConnsPerHost: 200,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  true,
		},
	}
}

// Dispatcher owns the worker pool draining Queue (spec §4.5).
type Dispatcher struct {
	queue    *queue.Queue
	store    *store.Store
	view     *health.View
	selector *selector.Selector
	client   *http.Client
	upstream [2]upstream.Upstream

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Dispatcher. client is usually NewHTTPClient(); tests
// can pass a client pointed at httptest servers.
func New(q *queue.Queue, st *store.Store, view *health.View, def, fallback upstream.Upstream, client *http.Client) *Dispatcher {
	return &Dispatcher{
		queue:    q,
		store:    st,
		view:     view,
		selector: selector.New(view),
		client:   client,
		upstream: [2]upstream.Upstream{upstream.Default: def, upstream.Fallback: fallback},
		stop:     make(chan struct{}),
	}
}

// Start launches one worker per Queue shard (spec §4.5: "the reference
// design sizes it to match the number of Queue shards").
func (d *Dispatcher) Start() {
	for i := 0; i < d.queue.Shards(); i++ {
		d.wg.Add(1)
		go d.run(i)
	}
}

// Stop signals every worker to exit — including a worker parked idle in
// RecvOrDone with an empty queue, the common case — and waits for all of
// them to return. In-flight attempts at shutdown may abort without
// persisting (spec §5).
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Dispatcher) run(workerID int) {
	defer d.wg.Done()
	for {
		p, ok := d.queue.RecvOrDone(workerID, d.stop)
		if !ok {
			return
		}
		d.dispatch(p)
	}
}

// dispatch drives one payment through selection, posting and retry until
// it is persisted or dropped, per the Payment state machine in spec
// §4.8: Queued -> InFlight -> (Persisted | Dropped | Retrying)*.
func (d *Dispatcher) dispatch(p payment.Payment) {
	attemptSelect := 0
	attemptPayment := 0

	for {
		kind, ok := d.selector.Select()
		if !ok {
			if d.sleepOrStop(backoff(selectBase, attemptSelect, selectCap)) {
				return
			}
			attemptSelect++
			continue
		}

		outcome := d.postUpstream(kind, p)
		switch outcome {
		case outcomeSuccess:
			d.store.Insert(kind, p.Key(), p.AmountCents())
			return
		case outcomeClientError:
			return // malformed payments are not retryable (spec §4.5)
		case outcomeServerError:
			d.view.Demote(kind)
			if d.sleepOrStop(backoff(paymentBase, attemptPayment, paymentCap)) {
				return
			}
			attemptPayment++
		}
	}
}

// sleepOrStop waits for d to stop or the backoff to elapse, whichever
// comes first. Returns true if the dispatcher was stopped.
func (d *Dispatcher) sleepOrStop(delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-d.stop:
		return true
	case <-timer.C:
		return false
	}
}

type postOutcome int

const (
	outcomeSuccess postOutcome = iota
	outcomeClientError
	outcomeServerError
)

// postUpstream performs the POST /payments call described in spec §4.5:
// canonical JSON body, Content-Type header, Host set to the upstream
// authority. Transport errors are treated as server-class, matching the
// spec's explicit equivalence.
func (d *Dispatcher) postUpstream(kind upstream.Kind, p payment.Payment) postOutcome {
	u := d.upstream[kind]

	body, err := p.MarshalUpstream()
	if err != nil {
		return outcomeClientError
	}

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL()+"/payments", bytes.NewReader(body))
	if err != nil {
		return outcomeServerError
	}
	req.Header.Set("Content-Type", "application/json")
	req.Host = u.Addr

	resp, err := d.client.Do(req)
	if err != nil {
		return outcomeServerError
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcomeSuccess
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return outcomeClientError
	default:
		return outcomeServerError
	}
}
