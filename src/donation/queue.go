package donation

import "time"

// Direction selects which way Advance moves the current index.
type Direction int

const (
	Next Direction = iota + 1
	Prev
)

func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Prev:
		return "prev"
	}
	return "unknown"
}

// Queue is the ordered track sequence. Insertion order is arrival order.
// Queue is not safe for concurrent use; the queue manager serializes all
// access to it.
type Queue struct {
	tracks  []*Track
	current int
}

// NewQueue returns an empty queue with no current track.
func NewQueue() *Queue {
	return &Queue{current: -1}
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int { return len(q.tracks) }

// CurrentIndex returns the current position, -1 when the queue is empty.
func (q *Queue) CurrentIndex() int { return q.current }

// Current returns the current track, nil when the queue is empty.
func (q *Queue) Current() *Track {
	if q.current < 0 || q.current >= len(q.tracks) {
		return nil
	}
	return q.tracks[q.current]
}

// Track returns the live track with the given id, nil if absent.
func (q *Queue) Track(id string) *Track {
	for _, t := range q.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Has reports whether a track with the given id is queued.
func (q *Queue) Has(id string) bool { return q.Track(id) != nil }

// Tracks returns the live backing slice. Callers outside the queue manager
// must use Snapshot instead.
func (q *Queue) Tracks() []*Track { return q.tracks }

// Append adds a track at the tail. The first track of an empty queue
// becomes current.
func (q *Queue) Append(t *Track) {
	q.tracks = append(q.tracks, t)
	if q.current < 0 {
		q.current = 0
	}
	q.reindex()
}

// Advance moves the current index one step in the given direction, skipping
// failed tracks. It does not wrap; when no playable track exists in that
// direction it reports false and leaves the index unchanged.
func (q *Queue) Advance(dir Direction) bool {
	if q.current < 0 {
		return false
	}
	step := 1
	if dir == Prev {
		step = -1
	}
	for i := q.current + step; i >= 0 && i < len(q.tracks); i += step {
		if q.tracks[i].Status != StatusFailed {
			q.current = i
			return true
		}
	}
	return false
}

// JumpToStart moves the current index to the head of the queue.
func (q *Queue) JumpToStart() bool {
	if len(q.tracks) == 0 || q.current == 0 {
		return false
	}
	q.current = 0
	return true
}

// retained reports whether the track at index i survives trimming: the
// current track, its immediate neighbors, and any in-flight track.
func (q *Queue) retained(i int) bool {
	if q.tracks[i].InFlight() {
		return true
	}
	if q.current < 0 {
		return false
	}
	return i >= q.current-1 && i <= q.current+1
}

// Trim evicts every track outside the retention window and returns the
// evicted tracks so the caller can release their local files. The current
// track is never evicted and the index follows it.
func (q *Queue) Trim() []*Track {
	if len(q.tracks) == 0 {
		return nil
	}
	var kept []*Track
	var evicted []*Track
	newCurrent := -1
	for i, t := range q.tracks {
		if q.retained(i) {
			if i == q.current {
				newCurrent = len(kept)
			}
			kept = append(kept, t)
			continue
		}
		evicted = append(evicted, t)
	}
	q.tracks = kept
	if newCurrent >= 0 {
		q.current = newCurrent
	} else if len(q.tracks) == 0 {
		q.current = -1
	} else if q.current >= len(q.tracks) {
		q.current = len(q.tracks) - 1
	}
	q.reindex()
	return evicted
}

// Clear removes every track except the one currently playing, returning the
// removed tracks for file release.
func (q *Queue) Clear() []*Track {
	var kept []*Track
	var removed []*Track
	for _, t := range q.tracks {
		if t.Status == StatusPlaying {
			kept = append(kept, t)
			continue
		}
		removed = append(removed, t)
	}
	q.tracks = kept
	if len(kept) == 0 {
		q.current = -1
	} else {
		q.current = 0
	}
	q.reindex()
	return removed
}

// reindex refreshes each track's derived position field.
func (q *Queue) reindex() {
	for i, t := range q.tracks {
		t.Position = i
	}
}

// QueueSnapshot is an immutable copy of the queue handed to observers.
type QueueSnapshot struct {
	Tracks       []*Track
	CurrentIndex int
	TakenAt      time.Time
}

// Snapshot deep-copies the queue state.
func (q *Queue) Snapshot() QueueSnapshot {
	tracks := make([]*Track, len(q.tracks))
	for i, t := range q.tracks {
		tracks[i] = t.Clone()
	}
	return QueueSnapshot{Tracks: tracks, CurrentIndex: q.current, TakenAt: time.Now()}
}

// Current returns the snapshot's current track, nil when none.
func (s QueueSnapshot) Current() *Track {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Tracks) {
		return nil
	}
	return s.Tracks[s.CurrentIndex]
}

// Track returns the snapshot's track with the given id, nil if absent.
func (s QueueSnapshot) Track(id string) *Track {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
