package donation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackStatus is the lifecycle state of a queued track.
type TrackStatus string

const (
	StatusPending     TrackStatus = "pending"
	StatusDownloading TrackStatus = "downloading"
	StatusReady       TrackStatus = "ready"
	StatusPlaying     TrackStatus = "playing"
	StatusPlayed      TrackStatus = "played"
	StatusFailed      TrackStatus = "failed"
)

// statusRank orders statuses along the lifecycle. Transitions may only move
// to a higher rank (or to the same status, which is a no-op), except that
// any status may fail.
var statusRank = map[TrackStatus]int{
	StatusPending:     0,
	StatusDownloading: 1,
	StatusReady:       2,
	StatusPlaying:     3,
	StatusPlayed:      4,
	StatusFailed:      4,
}

// Valid reports whether s is a known status.
func (s TrackStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a track may move from s to next. Repeating
// the current status is allowed so duplicate notifications stay idempotent.
func (s TrackStatus) CanTransition(next TrackStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == s {
		return true
	}
	if next == StatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Track represents a donated media reference and its resolution state in the
// playback queue.
type Track struct {
	ID         string
	SourceID   string
	ExternalID string
	Title      string
	MediaRef   string
	DonatedBy  string
	Amount     float64
	Currency   string
	LocalPath  string
	Status     TrackStatus
	Position   int // index at last mutation; the queue order is authoritative
	EnqueuedAt time.Time
	Error      string
}

// NewTrack creates a Pending track from a donation event.
func NewTrack(event DonationEvent) *Track {
	return &Track{
		ID:         GenerateTrackID(event.SourceID, event.ExternalID),
		SourceID:   event.SourceID,
		ExternalID: event.ExternalID,
		Title:      event.Title,
		MediaRef:   event.MediaRef,
		DonatedBy:  event.DonatedBy,
		Amount:     event.Amount,
		Currency:   event.Currency,
		Status:     StatusPending,
		EnqueuedAt: time.Now(),
	}
}

// SetStatus transitions the track to next, enforcing the forward-only
// lifecycle. Invalid transitions leave the track untouched.
func (t *Track) SetStatus(next TrackStatus) error {
	if !t.Status.CanTransition(next) {
		return &InvalidTransitionError{TrackID: t.ID, From: t.Status, To: next}
	}
	t.Status = next
	return nil
}

// InFlight reports whether the track has resolution work pending; in-flight
// tracks are never trimmed.
func (t *Track) InFlight() bool {
	return t.Status == StatusPending || t.Status == StatusDownloading
}

// Validate checks the fields a track must carry to enter the queue.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("track id cannot be empty")
	}
	if strings.TrimSpace(t.SourceID) == "" {
		return fmt.Errorf("track source cannot be empty: id -> %s", t.ID)
	}
	if strings.TrimSpace(t.MediaRef) == "" {
		return fmt.Errorf("track media reference cannot be empty: id -> %s", t.ID)
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title cannot exceed 500 characters, got %d: title -> %s", len(t.Title), t.Title)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown track status %q: id -> %s", t.Status, t.ID)
	}
	return nil
}

// Clone returns an independent copy of the track.
func (t *Track) Clone() *Track {
	c := *t
	return &c
}

// GenerateTrackID creates a deterministic UUID for a track from its source
// and external donation id. Replays of the same donation map to the same id.
func GenerateTrackID(sourceID, externalID string) string {
	inputBytes := []byte(sourceID + ":" + externalID)
	return uuid.NewSHA1(uuid.NameSpaceDNS, inputBytes).String()
}
