package orchestrator

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// TelemetrySink receives a best-effort copy of every published event.
// Forward failures are logged and swallowed; they never affect publish.
type TelemetrySink interface {
	Forward(ev Event) error
}

type subscriber struct {
	token   uuid.UUID
	queue   chan Event
	dropped int64 // accessed via sync/atomic: Publish may run concurrently from multiple goroutines
}

// Broker is the in-process pub/sub point every observable event passes
// through. Publish is ordered per subscriber (FIFO relative to the
// publisher's wall clock); cross-subscriber ordering is not guaranteed.
//
// Subscriber queues are bounded; a slow consumer drops its oldest buffered
// event rather than growing without bound or blocking the publisher.
type Broker struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	depth  int
	sink   TelemetrySink
	logger Logger
}

// NewBroker constructs a Broker with the given per-subscriber queue depth.
func NewBroker(queueDepth int, sink TelemetrySink, logger Logger) *Broker {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Broker{
		subs:   make(map[uuid.UUID]*subscriber),
		depth:  queueDepth,
		sink:   sink,
		logger: orNoOp(logger),
	}
}

// Subscribe allocates a fresh bounded queue and returns its token.
func (b *Broker) Subscribe() (uuid.UUID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := uuid.New()
	sub := &subscriber{
		token: token,
		queue: make(chan Event, b.depth),
	}
	b.subs[token] = sub
	return token, sub.queue
}

// Unsubscribe removes a subscriber's queue. Pending enqueues targeting an
// already-removed token are silently ignored, never a crash.
func (b *Broker) Unsubscribe(token uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[token]; ok {
		close(sub.queue)
		delete(b.subs, token)
	}
}

// Publish snapshots the current subscriber list under a short-held lock,
// then enqueues to each outside the lock. A full queue drops its oldest
// entry to make room rather than blocking or growing unbounded.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	snapshot := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		snapshot = append(snapshot, s)
	}
	b.mu.Unlock()

	for _, s := range snapshot {
		b.enqueue(s, ev)
	}

	if b.sink != nil {
		if err := b.sink.Forward(ev); err != nil {
			b.logger.Warn("telemetry forward failed", "error", err)
		}
	}
}

func (b *Broker) enqueue(s *subscriber, ev Event) {
	// Unsubscribe may close s.queue concurrently with this send; treat
	// that race as a no-op rather than letting it panic the publisher.
	defer func() { _ = recover() }()

	select {
	case s.queue <- ev:
	default:
		// drop-oldest: make room for the newest event rather than blocking
		// the publisher or growing the queue without bound.
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- ev:
		default:
		}
		dropped := atomic.AddInt64(&s.dropped, 1)
		if dropped == 1 || dropped%50 == 0 {
			b.logger.Warn("subscriber backlog, dropping oldest event", "token", s.token, "dropped", dropped)
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
