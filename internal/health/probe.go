package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/go-rinha/payments-gateway/internal/upstream"
)

// Interval is the fixed probe cadence required by spec §4.3.
const Interval = 5 * time.Second

const probeTimeout = 2 * time.Second

// Probe periodically checks GET /payments/service-health on both
// upstreams and updates the shared View. A probe failure (connection
// refused, timeout, malformed body) leaves the previous value
// unchanged — it is never treated as a demotion (spec §4.3).
type Probe struct {
	view     *View
	client   *http.Client
	upstream [2]upstream.Upstream

	group singleflight.Group // coalesces ticks that overlap an in-flight check

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewProbe builds a Probe for the given default/fallback pair.
func NewProbe(view *View, client *http.Client, def, fallback upstream.Upstream) *Probe {
	return &Probe{
		view:     view,
		client:   client,
		upstream: [2]upstream.Upstream{upstream.Default: def, upstream.Fallback: fallback},
		stop:     make(chan struct{}),
	}
}

// Start runs the periodic probe loop in a background goroutine. Call
// Stop to shut it down. Each tick fires Check() in its own goroutine
// rather than blocking the ticker: if a check is still running when the
// next tick arrives — a slow or hanging upstream taking longer than
// Interval to answer — the ticker keeps firing instead of stalling
// behind it, and the overlapping Check() calls genuinely race each
// other onto Group.Do, which is what needs coalescing (spec §4.3: "the
// probe never runs two checks concurrently for the same cycle").
func (p *Probe) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(Interval)
		defer ticker.Stop()

		p.fire() // probe immediately at startup, don't wait a full interval
		for {
			select {
			case <-ticker.C:
				p.fire()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop halts the probe loop and waits for any in-flight check to finish.
func (p *Probe) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// fire launches Check() without blocking the ticker loop.
func (p *Probe) fire() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Check()
	}()
}

// Check probes both upstreams concurrently and updates View. Concurrent
// or overlapping calls — from Start's ticker loop firing non-blocking,
// or from a caller invoking Check directly — coalesce onto a single
// in-flight check via singleflight.Group, so a cycle in progress is
// never duplicated.
func (p *Probe) Check() {
	_, _, _ = p.group.Do("probe", func() (any, error) {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.checkOne(upstream.Default)
		}()
		go func() {
			defer wg.Done()
			p.checkOne(upstream.Fallback)
		}()
		wg.Wait()
		return nil, nil
	})
}

type serviceHealthResponse struct {
	Failing bool `json:"failing"`
}

func (p *Probe) checkOne(kind upstream.Kind) {
	u := p.upstream[kind]

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.BaseURL()+"/payments/service-health", nil)
	if err != nil {
		log.Printf("health: building probe request for %s (%s): %v", kind, u.Addr, err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("health: probing %s (%s): %v", kind, u.Addr, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("health: %s (%s) returned status %d", kind, u.Addr, resp.StatusCode)
		return
	}

	var body serviceHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("health: decoding probe body for %s (%s): %v", kind, u.Addr, err)
		return
	}

	p.view.Set(kind, !body.Failing)
}
