package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
)

type fakePlayer struct {
	mu      sync.Mutex
	playing bool
	paused  bool
	path    string
	plays   int
	done    chan struct{}
	playErr error
}

func newFakePlayer() *fakePlayer {
	closed := make(chan struct{})
	close(closed)
	return &fakePlayer{done: closed}
}

func (p *fakePlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.playing = true
	p.paused = false
	p.path = path
	p.plays++
	p.done = make(chan struct{})
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	return nil
}

func (p *fakePlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.playing = false
		close(p.done)
	}
	return nil
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// finish simulates the player process exiting on its own.
func (p *fakePlayer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.playing = false
		close(p.done)
	}
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

func (p *fakePlayer) currentPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

type fakeQueue struct {
	mu       sync.Mutex
	tracks   []*donation.Track
	current  int
	statuses map[string][]donation.TrackStatus
	advances int
}

func newFakeQueue(tracks ...*donation.Track) *fakeQueue {
	current := -1
	if len(tracks) > 0 {
		current = 0
	}
	return &fakeQueue{tracks: tracks, current: current, statuses: make(map[string][]donation.TrackStatus)}
}

func (q *fakeQueue) Snapshot() (donation.QueueSnapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	tracks := make([]*donation.Track, len(q.tracks))
	for i, t := range q.tracks {
		tracks[i] = t.Clone()
	}
	return donation.QueueSnapshot{Tracks: tracks, CurrentIndex: q.current, TakenAt: time.Now()}, nil
}

func (q *fakeQueue) Advance(dir donation.Direction) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.advances++
	if q.current+1 < len(q.tracks) {
		q.current++
		return true, nil
	}
	return false, nil
}

func (q *fakeQueue) MarkStatus(id string, status donation.TrackStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[id] = append(q.statuses[id], status)
	for _, t := range q.tracks {
		if t.ID == id {
			t.Status = status
		}
	}
	return nil
}

func (q *fakeQueue) marks(id string) []donation.TrackStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]donation.TrackStatus(nil), q.statuses[id]...)
}

func (q *fakeQueue) advanceCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advances
}

type fakeBus struct {
	mu sync.Mutex
	ch chan donation.Event
}

func newFakeBus() *fakeBus {
	return &fakeBus{ch: make(chan donation.Event, 16)}
}

func (b *fakeBus) Subscribe(name string) <-chan donation.Event { return b.ch }
func (b *fakeBus) Unsubscribe(name string)                     {}

func readyTrack(id string) *donation.Track {
	return &donation.Track{
		ID:        id,
		SourceID:  "donationalerts",
		MediaRef:  "https://youtube.com/watch?v=" + id,
		Title:     "Track " + id,
		LocalPath: "/media/" + id + ".mp3",
		Status:    donation.StatusReady,
	}
}

func playbackConfig(enabled, autoAdvance bool, minPlay float64) *config.Manager {
	return config.NewManager(&config.Config{
		Playback: config.Playback{
			Enabled:        enabled,
			Player:         "null",
			AutoAdvance:    autoAdvance,
			MinPlaySeconds: minPlay,
		},
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestStartPlaysReadyCurrentTrack(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"))
	service := NewService(playbackConfig(true, true, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()

	waitFor(t, player.Playing)
	if player.currentPath() != "/media/a.mp3" {
		t.Errorf("expected track a's file, got %s", player.currentPath())
	}
	marks := queue.marks("a")
	if len(marks) == 0 || marks[0] != donation.StatusPlaying {
		t.Errorf("expected track marked playing, got %v", marks)
	}
}

func TestDisabledPlaybackStaysIdle(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"))
	service := NewService(playbackConfig(false, true, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()

	time.Sleep(20 * time.Millisecond)
	if player.Playing() {
		t.Error("disabled playback must not start the player")
	}
}

func TestAutoAdvanceAfterPlayback(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"), readyTrack("b"))
	service := NewService(playbackConfig(true, true, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()

	waitFor(t, player.Playing)
	player.finish()

	waitFor(t, func() bool { return player.playCount() == 2 })
	if player.currentPath() != "/media/b.mp3" {
		t.Errorf("expected track b playing after advance, got %s", player.currentPath())
	}
	marks := queue.marks("a")
	if len(marks) != 2 || marks[1] != donation.StatusPlayed {
		t.Errorf("expected track a played after completion, got %v", marks)
	}
}

func TestNoAdvanceWhenDisabled(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"), readyTrack("b"))
	service := NewService(playbackConfig(true, false, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()

	waitFor(t, player.Playing)
	player.finish()

	waitFor(t, func() bool {
		marks := queue.marks("a")
		return len(marks) == 2 && marks[1] == donation.StatusPlayed
	})
	if queue.advanceCount() != 0 {
		t.Errorf("expected no advance with auto-advance disabled, got %d", queue.advanceCount())
	}
}

func TestEarlyExitDoesNotAdvance(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"), readyTrack("b"))
	service := NewService(playbackConfig(true, true, 60), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()

	waitFor(t, player.Playing)
	player.finish() // exits well before the 60s minimum

	waitFor(t, func() bool {
		marks := queue.marks("a")
		return len(marks) == 2 && marks[1] == donation.StatusPlayed
	})
	if queue.advanceCount() != 0 {
		t.Error("a suspiciously short playback must not advance the queue")
	}
	if player.playCount() != 1 {
		t.Errorf("expected no restart after early exit, got %d plays", player.playCount())
	}
}

func TestReadyNotificationStartsPlayback(t *testing.T) {
	player := newFakePlayer()
	pending := readyTrack("a")
	pending.Status = donation.StatusDownloading
	pending.LocalPath = ""
	queue := newFakeQueue(pending)
	bus := newFakeBus()
	service := NewService(playbackConfig(true, true, 0), queue, player, bus)

	service.Start()
	defer service.Shutdown()

	time.Sleep(20 * time.Millisecond)
	if player.Playing() {
		t.Fatal("player must stay idle while the track downloads")
	}

	queue.mu.Lock()
	queue.tracks[0].Status = donation.StatusReady
	queue.tracks[0].LocalPath = "/media/a.mp3"
	queue.mu.Unlock()
	bus.ch <- donation.TrackStatusChanged{TrackID: "a", Status: donation.StatusReady}

	waitFor(t, player.Playing)
}

func TestSkipInterruptsAndStartsNext(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"), readyTrack("b"))
	bus := newFakeBus()
	service := NewService(playbackConfig(true, true, 60), queue, player, bus)

	service.Start()
	defer service.Shutdown()

	waitFor(t, player.Playing)

	// A skip marks the playing track played and moves the queue pointer.
	queue.mu.Lock()
	queue.tracks[0].Status = donation.StatusPlayed
	queue.current = 1
	queue.mu.Unlock()
	bus.ch <- donation.TrackStatusChanged{TrackID: "a", Status: donation.StatusPlayed}

	waitFor(t, func() bool { return player.playCount() == 2 })
	if player.currentPath() != "/media/b.mp3" {
		t.Errorf("expected track b after skip, got %s", player.currentPath())
	}
	if queue.advanceCount() != 0 {
		t.Error("the interrupt path must not advance the queue again")
	}
}

func TestPauseResume(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"))
	service := NewService(playbackConfig(true, true, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()
	waitFor(t, player.Playing)

	if err := service.Pause(); err != nil {
		t.Fatal(err)
	}
	if !service.Status().Paused {
		t.Error("expected paused status")
	}
	if err := service.Resume(); err != nil {
		t.Fatal(err)
	}
	if service.Status().Paused {
		t.Error("expected playback resumed")
	}
}

func TestStopDoesNotAdvance(t *testing.T) {
	player := newFakePlayer()
	queue := newFakeQueue(readyTrack("a"), readyTrack("b"))
	service := NewService(playbackConfig(true, true, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()
	waitFor(t, player.Playing)

	if err := service.Stop(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		marks := queue.marks("a")
		return len(marks) == 2 && marks[1] == donation.StatusPlayed
	})
	if queue.advanceCount() != 0 {
		t.Error("a manual stop must not advance the queue")
	}
}

func TestUnplayableTrackMarkedFailed(t *testing.T) {
	player := newFakePlayer()
	player.playErr = context.DeadlineExceeded
	queue := newFakeQueue(readyTrack("a"))
	service := NewService(playbackConfig(true, true, 0), queue, player, newFakeBus())

	service.Start()
	defer service.Shutdown()

	waitFor(t, func() bool {
		marks := queue.marks("a")
		return len(marks) == 1 && marks[0] == donation.StatusFailed
	})
}
