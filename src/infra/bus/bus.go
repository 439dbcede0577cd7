package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

// ErrClosed is returned by Publish after the bus has been closed.
var ErrClosed = errors.New("bus is closed")

const observerBuffer = 16

// Bus carries producer events from pollers and the downloader to the queue
// manager, and fans notification events out to observers. Producer events are
// never dropped: Publish blocks when the bus is full, with context
// cancellation as the only escape. Observer channels are buffered and may
// drop notifications when an observer lags.
type Bus struct {
	intake chan donation.Event
	sink   chan donation.Event

	mu          sync.RWMutex
	subscribers map[string]chan donation.Event

	done      chan struct{}
	drained   chan struct{}
	closeOnce sync.Once
}

// New creates a bus with the given capacity for producer events.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	return &Bus{
		intake:      make(chan donation.Event, capacity),
		sink:        make(chan donation.Event, capacity),
		subscribers: make(map[string]chan donation.Event),
		done:        make(chan struct{}),
		drained:     make(chan struct{}),
	}
}

// Run starts the dispatch loop. It forwards producer events from the intake
// to the sink in arrival order and exits after Close, draining the intake
// first. Callers run it on its own goroutine.
func (b *Bus) Run() {
	defer close(b.drained)
	for {
		select {
		case e := <-b.intake:
			b.sink <- e
		case <-b.done:
			for {
				select {
				case e := <-b.intake:
					b.sink <- e
				default:
					close(b.sink)
					b.closeSubscribers()
					return
				}
			}
		}
	}
}

// Publish hands an event to the bus. Producer events block until accepted or
// ctx is cancelled; notification events are fanned out to observers
// immediately and never block.
func (b *Bus) Publish(ctx context.Context, e donation.Event) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	if !isProducerEvent(e) {
		b.fanOut(e)
		return nil
	}

	select {
	case b.intake <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Events returns the channel the queue manager consumes producer events
// from. The channel is closed once the bus shuts down and the intake is
// drained.
func (b *Bus) Events() <-chan donation.Event {
	return b.sink
}

// Subscribe registers an observer for notification events under a unique
// name. The returned channel is closed on Unsubscribe or bus shutdown.
func (b *Bus) Subscribe(name string) <-chan donation.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subscribers[name]; ok {
		close(old)
	}
	ch := make(chan donation.Event, observerBuffer)
	b.subscribers[name] = ch
	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[name]; ok {
		delete(b.subscribers, name)
		close(ch)
	}
}

// Close shuts the bus down and waits until the dispatch loop has drained
// pending producer events.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	<-b.drained
}

func (b *Bus) fanOut(e donation.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for name, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			slog.Warn("Observer not keeping up, dropping notification", "observer", name, "event", e.EventName())
		}
	}
}

func (b *Bus) closeSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, ch := range b.subscribers {
		delete(b.subscribers, name)
		close(ch)
	}
}

// isProducerEvent reports whether e must reach the queue manager (lossless
// path) rather than the observers (lossy path).
func isProducerEvent(e donation.Event) bool {
	switch e.(type) {
	case donation.DonationReceived, donation.TrackReady, donation.TrackFailed, donation.MarkerAdvanced:
		return true
	}
	return false
}
