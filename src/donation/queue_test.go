package donation

import (
	"fmt"
	"testing"
)

func queuedTrack(id string, status TrackStatus) *Track {
	return &Track{ID: id, SourceID: "test", ExternalID: id, MediaRef: "ref://" + id, Status: status}
}

func TestAppend_FirstTrackBecomesCurrent(t *testing.T) {
	q := NewQueue()
	if q.CurrentIndex() != -1 {
		t.Fatalf("expected empty queue index -1, got %d", q.CurrentIndex())
	}

	q.Append(queuedTrack("a", StatusPending))
	if q.CurrentIndex() != 0 {
		t.Errorf("expected first append to set current to 0, got %d", q.CurrentIndex())
	}
	if q.Current().ID != "a" {
		t.Errorf("expected current track a, got %s", q.Current().ID)
	}
}

func TestAdvance_NoOpAtBoundaries(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusReady))
	q.Append(queuedTrack("b", StatusReady))

	if q.Advance(Prev) {
		t.Error("expected Prev at index 0 to be a no-op")
	}
	if q.CurrentIndex() != 0 {
		t.Errorf("expected index to stay 0, got %d", q.CurrentIndex())
	}

	if !q.Advance(Next) {
		t.Fatal("expected Next to move")
	}
	if q.Advance(Next) {
		t.Error("expected Next at the last index to be a no-op")
	}
	if q.CurrentIndex() != 1 {
		t.Errorf("expected index to stay 1, got %d", q.CurrentIndex())
	}
}

func TestAdvance_SkipsFailedTracks(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusReady))
	q.Append(queuedTrack("b", StatusFailed))
	q.Append(queuedTrack("c", StatusReady))

	if !q.Advance(Next) {
		t.Fatal("expected advance to succeed")
	}
	if q.Current().ID != "c" {
		t.Errorf("expected advance to skip the failed track and land on c, got %s", q.Current().ID)
	}

	if !q.Advance(Prev) {
		t.Fatal("expected advance back to succeed")
	}
	if q.Current().ID != "a" {
		t.Errorf("expected prev to skip the failed track and land on a, got %s", q.Current().ID)
	}
}

func TestAdvance_NoPlayableTargetIsNoOp(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusReady))
	q.Append(queuedTrack("b", StatusFailed))

	if q.Advance(Next) {
		t.Error("expected advance to be a no-op when only failed tracks remain ahead")
	}
	if q.Current().ID != "a" {
		t.Errorf("expected current to stay on a, got %s", q.Current().ID)
	}
}

func TestTrim_KeepsWindowAndInFlight(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 6; i++ {
		q.Append(queuedTrack(fmt.Sprintf("t%d", i), StatusPlayed))
	}
	q.Append(queuedTrack("pending", StatusPending))
	// move current to t3 so t0..t1 fall outside the window
	q.current = 3

	evicted := q.Trim()

	for _, tr := range evicted {
		if tr.InFlight() {
			t.Errorf("expected in-flight tracks to survive, evicted %s", tr.ID)
		}
	}
	if q.Current().ID != "t3" {
		t.Fatalf("expected current to stay t3, got %s", q.Current().ID)
	}
	if !q.Has("t2") || !q.Has("t4") {
		t.Error("expected immediate neighbors of current to survive trimming")
	}
	if !q.Has("pending") {
		t.Error("expected pending track to survive trimming")
	}
	if q.Has("t0") || q.Has("t1") || q.Has("t5") {
		t.Error("expected tracks outside the window to be evicted")
	}

	windowCount := 0
	for _, tr := range q.Tracks() {
		if !tr.InFlight() {
			windowCount++
		}
	}
	if windowCount > 3 {
		t.Errorf("expected at most 3 settled tracks after trimming, got %d", windowCount)
	}
}

func TestTrim_NeverEvictsCurrent(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("only", StatusPlayed))

	evicted := q.Trim()
	if len(evicted) != 0 {
		t.Fatalf("expected nothing evicted, got %d", len(evicted))
	}
	if q.Current() == nil || q.Current().ID != "only" {
		t.Error("expected the current track to survive trimming")
	}
}

func TestTrim_WindowBoundHoldsUnderMutationSequences(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 20; i++ {
		tr := queuedTrack(fmt.Sprintf("t%d", i), StatusReady)
		q.Append(tr)
		if i%3 == 0 {
			q.Advance(Next)
		}
		q.Trim()

		settled := 0
		for _, qt := range q.Tracks() {
			if !qt.InFlight() {
				settled++
			}
		}
		if settled > 3 {
			t.Fatalf("window bound violated after %d appends: %d settled tracks", i+1, settled)
		}
	}
}

func TestScenario_AdvanceTwiceEvictsHead(t *testing.T) {
	q := NewQueue()
	a := queuedTrack("a", StatusPending)
	q.Append(a)
	if q.CurrentIndex() != 0 {
		t.Fatalf("expected currentIndex 0 after first enqueue, got %d", q.CurrentIndex())
	}
	a.SetStatus(StatusDownloading)
	a.SetStatus(StatusReady)

	d := queuedTrack("d", StatusPending)
	q.Append(queuedTrack("b", StatusPending))
	q.Append(queuedTrack("c", StatusPending))
	q.Append(d)

	q.Advance(Next)
	if evicted := q.Trim(); len(evicted) != 0 {
		t.Fatalf("expected no eviction while b,c,d are in flight, got %v", evicted)
	}
	q.Advance(Next)
	evicted := q.Trim()

	if q.Current().ID != "c" {
		t.Fatalf("expected current c after two advances, got %s", q.Current().ID)
	}
	if len(evicted) != 1 || evicted[0].ID != "a" {
		t.Fatalf("expected exactly a to be evicted, got %v", evicted)
	}

	// d finishes downloading inside the window and survives the next trim
	d.SetStatus(StatusDownloading)
	d.SetStatus(StatusReady)
	if evicted := q.Trim(); len(evicted) != 0 {
		t.Fatalf("expected ready track inside the window to survive, got %v", evicted)
	}
	if got := q.Len(); got != 3 {
		t.Errorf("expected queue [b c d], got %d tracks", got)
	}
	if q.Tracks()[0].ID != "b" || q.Tracks()[2].ID != "d" {
		t.Errorf("expected queue order b,c,d, got %s,%s,%s",
			q.Tracks()[0].ID, q.Tracks()[1].ID, q.Tracks()[2].ID)
	}
}

func TestClear_KeepsPlayingTrack(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusPlayed))
	playing := queuedTrack("b", StatusPlaying)
	q.Append(playing)
	q.Append(queuedTrack("c", StatusReady))
	q.current = 1

	removed := q.Clear()
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed tracks, got %d", len(removed))
	}
	if q.Len() != 1 || q.Current().ID != "b" {
		t.Error("expected the playing track to remain current after clear")
	}
}

func TestClear_EmptyQueueResetsCurrent(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusReady))
	q.Clear()
	if q.CurrentIndex() != -1 {
		t.Errorf("expected index -1 after clearing everything, got %d", q.CurrentIndex())
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusPending))

	snap := q.Snapshot()
	snap.Tracks[0].Status = StatusFailed

	if q.Track("a").Status != StatusPending {
		t.Error("expected snapshot mutation to not affect the live queue")
	}
}

func TestJumpToStart(t *testing.T) {
	q := NewQueue()
	q.Append(queuedTrack("a", StatusPlayed))
	q.Append(queuedTrack("b", StatusReady))
	q.Advance(Next)

	if !q.JumpToStart() {
		t.Fatal("expected jump to start to move")
	}
	if q.CurrentIndex() != 0 {
		t.Errorf("expected index 0, got %d", q.CurrentIndex())
	}
	if q.JumpToStart() {
		t.Error("expected jump to start at index 0 to be a no-op")
	}
}
