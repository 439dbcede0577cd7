package donation

import "context"

// Source is a donation service adapter. Poll must be safely callable on
// every cycle and return events in ascending marker order; the caller
// handles deduplication against its persisted marker.
type Source interface {
	ID() string
	Poll(ctx context.Context) ([]DonationEvent, error)
}

// Resolver turns a track's media reference into a playable local file.
// Implementations must be cancellable through the context.
type Resolver interface {
	Resolve(ctx context.Context, track *Track) (localPath, title string, err error)
}

// Player is the audio engine boundary. Play starts the given file and
// returns immediately; Done is closed when playback finishes or is stopped.
type Player interface {
	Play(ctx context.Context, path string) error
	Pause() error
	Resume() error
	Stop() error
	Playing() bool
	Done() <-chan struct{}
}

// StateStore persists engine state between runs. Load returns (nil, nil)
// when no state has been saved yet.
type StateStore interface {
	Load(ctx context.Context) (*PersistedState, error)
	Save(ctx context.Context, state *PersistedState) error
}

// Publisher hands events to the bus. Publish blocks while the bus is full;
// cancelling the context is the only way out.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Observer receives push notifications from the queue manager. Callbacks
// must not block; slow observers lose notifications, never corrupt state.
type Observer interface {
	OnQueueChanged(snapshot QueueSnapshot)
	OnTrackStatusChanged(id string, status TrackStatus)
}
