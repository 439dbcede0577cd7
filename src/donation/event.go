package donation

import "time"

// DonationEvent is a single donation fetched from an external source. Events
// are owned by their producing poller until handed off on the bus.
type DonationEvent struct {
	SourceID   string
	ExternalID string
	Marker     Marker
	MediaRef   string
	Title      string
	DonatedBy  string
	Amount     float64
	Currency   string
	ReceivedAt time.Time
}

// Marker is a per-source deduplication cursor. Markers compare
// lexicographically; sources must encode them so that later donations sort
// after earlier ones (zero-padded numeric ids, RFC 3339 timestamps).
type Marker string

// After reports whether m sorts after other. The zero marker precedes all.
func (m Marker) After(other Marker) bool {
	return m > other
}

// Event is anything carried on the bus: producer events consumed by the
// queue manager and notifications fanned out to observers.
type Event interface {
	EventName() string
}

// DonationReceived is published by a poller for each new deduplicated
// donation, in ascending marker order.
type DonationReceived struct {
	Donation DonationEvent
}

func (DonationReceived) EventName() string { return "donation.received" }

// TrackReady is published by the downloader when a track has a playable
// local file. Ownership of the file transfers to the queue manager once the
// event is applied.
type TrackReady struct {
	TrackID   string
	LocalPath string
	Title     string
}

func (TrackReady) EventName() string { return "track.ready" }

// TrackFailed is published by the downloader when resolution failed. The
// track stays in the queue, marked failed, and is skipped during playback.
type TrackFailed struct {
	TrackID string
	Reason  string
}

func (TrackFailed) EventName() string { return "track.failed" }

// MarkerAdvanced is published by a poller after its events were accepted on
// the bus, so the new cursor persists with the queue state.
type MarkerAdvanced struct {
	SourceID string
	Marker   Marker
}

func (MarkerAdvanced) EventName() string { return "marker.advanced" }

// QueueChanged notifies observers that the queue structure changed. The
// snapshot is immutable.
type QueueChanged struct {
	Snapshot QueueSnapshot
}

func (QueueChanged) EventName() string { return "queue.changed" }

// TrackStatusChanged notifies observers of a single track's transition.
type TrackStatusChanged struct {
	TrackID string
	Status  TrackStatus
}

func (TrackStatusChanged) EventName() string { return "track.status" }

// SourceStateChanged notifies observers that a poller's health changed,
// e.g. after repeated authentication failures.
type SourceStateChanged struct {
	SourceID string
	Healthy  bool
	Message  string
}

func (SourceStateChanged) EventName() string { return "source.state" }
