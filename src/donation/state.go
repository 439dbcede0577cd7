package donation

import "time"

// TrackRecord is the serializable form of a track, used for the persisted
// state blob and for API responses.
type TrackRecord struct {
	ID         string      `json:"id"`
	SourceID   string      `json:"source_id"`
	ExternalID string      `json:"external_id"`
	Title      string      `json:"title"`
	MediaRef   string      `json:"media_ref"`
	DonatedBy  string      `json:"donated_by,omitempty"`
	Amount     float64     `json:"amount,omitempty"`
	Currency   string      `json:"currency,omitempty"`
	LocalPath  string      `json:"local_path,omitempty"`
	Status     TrackStatus `json:"status"`
	Position   int         `json:"position"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	Error      string      `json:"error,omitempty"`
}

// RecordFromTrack copies a track into its serializable form, verbatim.
func RecordFromTrack(t *Track) TrackRecord {
	return TrackRecord{
		ID:         t.ID,
		SourceID:   t.SourceID,
		ExternalID: t.ExternalID,
		Title:      t.Title,
		MediaRef:   t.MediaRef,
		DonatedBy:  t.DonatedBy,
		Amount:     t.Amount,
		Currency:   t.Currency,
		LocalPath:  t.LocalPath,
		Status:     t.Status,
		Position:   t.Position,
		EnqueuedAt: t.EnqueuedAt,
		Error:      t.Error,
	}
}

// Track rebuilds a live track from its record.
func (r TrackRecord) Track() *Track {
	return &Track{
		ID:         r.ID,
		SourceID:   r.SourceID,
		ExternalID: r.ExternalID,
		Title:      r.Title,
		MediaRef:   r.MediaRef,
		DonatedBy:  r.DonatedBy,
		Amount:     r.Amount,
		Currency:   r.Currency,
		LocalPath:  r.LocalPath,
		Status:     r.Status,
		Position:   r.Position,
		EnqueuedAt: r.EnqueuedAt,
		Error:      r.Error,
	}
}

// PersistedState is the durable snapshot of the engine: queue contents,
// per-source dedup markers, and source credentials. It is loaded once at
// startup and saved after every structural queue mutation.
type PersistedState struct {
	Tracks       []TrackRecord     `json:"tracks"`
	CurrentIndex int               `json:"current_index"`
	Markers      map[string]Marker `json:"markers"`
	Credentials  map[string]string `json:"credentials"`
	SavedAt      time.Time         `json:"saved_at"`
}

// NewPersistedState builds a durable snapshot. Runtime-only statuses are
// normalized: a playing track is saved as ready, a mid-download track is
// saved as pending with its partial path dropped so resolution restarts.
func NewPersistedState(snapshot QueueSnapshot, markers map[string]Marker, credentials map[string]string) *PersistedState {
	state := &PersistedState{
		Tracks:       make([]TrackRecord, 0, len(snapshot.Tracks)),
		CurrentIndex: snapshot.CurrentIndex,
		Markers:      make(map[string]Marker, len(markers)),
		Credentials:  make(map[string]string, len(credentials)),
		SavedAt:      time.Now(),
	}
	for _, t := range snapshot.Tracks {
		rec := RecordFromTrack(t)
		switch rec.Status {
		case StatusPlaying:
			rec.Status = StatusReady
		case StatusDownloading:
			rec.Status = StatusPending
			rec.LocalPath = ""
		}
		state.Tracks = append(state.Tracks, rec)
	}
	for id, m := range markers {
		state.Markers[id] = m
	}
	for id, c := range credentials {
		state.Credentials[id] = c
	}
	return state
}

// RestoreQueue rebuilds the live queue from the snapshot, clamping the
// current index to the restored length.
func (s *PersistedState) RestoreQueue() *Queue {
	q := NewQueue()
	for _, rec := range s.Tracks {
		q.Append(rec.Track())
	}
	if len(q.tracks) > 0 && s.CurrentIndex >= 0 && s.CurrentIndex < len(q.tracks) {
		q.current = s.CurrentIndex
	}
	return q
}
