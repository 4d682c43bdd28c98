// Package queue implements the bounded in-process handoff of payments
// between Ingress and Dispatcher (spec §4.2). Capacity is sharded across
// N independent buffered channels, with round-robin producer selection,
// the same shape as the teacher's BRUTOConnectionPool round-robin used
// for picking a pooled *http.Client — applied here to channel shards
// instead.
package queue

import (
	"runtime"
	"sync/atomic"

	"github.com/go-rinha/payments-gateway/internal/payment"
)

// DefaultCapacity is the total buffered capacity across all shards,
// sized per spec §4.2 (order of 10^4-10^5 items).
const DefaultCapacity = 65536

// Queue is a bounded, sharded FIFO of Payment values. FIFO order is
// preserved per shard; there is no ordering guarantee across shards.
type Queue struct {
	shards []chan payment.Payment
	next   atomic.Uint64
}

// New creates a Queue with the given total capacity, split evenly across
// shards. The shard count defaults to GOMAXPROCS, floored at 2.
func New(totalCapacity int) *Queue {
	return NewSharded(totalCapacity, shardCount())
}

// NewSharded creates a Queue with an explicit shard count, for tests that
// want to observe per-shard FIFO behavior directly.
func NewSharded(totalCapacity, shards int) *Queue {
	if shards < 1 {
		shards = 1
	}
	perShard := totalCapacity / shards
	if perShard < 1 {
		perShard = 1
	}

	q := &Queue{shards: make([]chan payment.Payment, shards)}
	for i := range q.shards {
		q.shards[i] = make(chan payment.Payment, perShard)
	}
	return q
}

func shardCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	if n > 8 {
		return 8
	}
	return n
}

// Send enqueues p, blocking cooperatively (via channel send) when the
// chosen shard is full. This is the backpressure mechanism ingress
// relies on — it never returns an error; QueueFull never surfaces
// (spec §7).
func (q *Queue) Send(p payment.Payment) {
	shard := q.next.Add(1) % uint64(len(q.shards))
	q.shards[shard] <- p
}

// Recv blocks until a payment is available on the given worker's shard.
// ok is false only once the shard has been closed and drained.
func (q *Queue) Recv(workerID int) (payment.Payment, bool) {
	p, ok := <-q.shards[workerID%len(q.shards)]
	return p, ok
}

// RecvOrDone blocks until a payment is available on the given worker's
// shard or stop is closed, whichever comes first. ok is false either
// because the shard was closed and drained, or because stop fired —
// callers that need to tell the two apart check stop themselves.
func (q *Queue) RecvOrDone(workerID int, stop <-chan struct{}) (payment.Payment, bool) {
	select {
	case p, ok := <-q.shards[workerID%len(q.shards)]:
		return p, ok
	case <-stop:
		return payment.Payment{}, false
	}
}

// Shards returns the number of independent shards — callers size their
// worker pool to match, one worker per shard (spec §4.5).
func (q *Queue) Shards() int {
	return len(q.shards)
}

// Close closes every shard channel. Only safe to call once all sends
// have stopped.
func (q *Queue) Close() {
	for _, ch := range q.shards {
		close(ch)
	}
}
