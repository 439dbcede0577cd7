package player

import (
	"context"
	"log/slog"
	"sync"
)

// NullPlayer is a no-op player for headless deployments: it accepts every
// transport call and "plays" until told to stop. Queue advancement then
// happens only through the transport API.
type NullPlayer struct {
	mu   sync.Mutex
	done chan struct{}
}

// NewNullPlayer creates a null player.
func NewNullPlayer() *NullPlayer {
	return &NullPlayer{}
}

func (p *NullPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		select {
		case <-p.done:
		default:
			close(p.done)
		}
	}
	p.done = make(chan struct{})
	slog.Debug("Null player accepted track", "path", path)
	return nil
}

func (p *NullPlayer) Pause() error  { return nil }
func (p *NullPlayer) Resume() error { return nil }

func (p *NullPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		select {
		case <-p.done:
		default:
			close(p.done)
		}
	}
	return nil
}

func (p *NullPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *NullPlayer) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}
