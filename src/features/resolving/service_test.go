package resolving

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/metrics"
)

type fakeResolver struct {
	mu      sync.Mutex
	calls   int
	path    string
	title   string
	err     error
	block   chan struct{}
	started chan string
}

func (f *fakeResolver) Resolve(ctx context.Context, track *donation.Track) (string, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- track.ID
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return f.path, f.title, f.err
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type eventRecorder struct {
	mu     sync.Mutex
	events []donation.Event
	signal chan donation.Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{signal: make(chan donation.Event, 16)}
}

func (r *eventRecorder) Publish(ctx context.Context, e donation.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.signal <- e
	return nil
}

func (r *eventRecorder) wait(t *testing.T) donation.Event {
	t.Helper()
	select {
	case e := <-r.signal:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a published event")
		return nil
	}
}

func resolvingConfig() *config.Manager {
	return config.NewManager(&config.Config{
		Downloads: config.Downloads{MaxConcurrent: 2, TimeoutSeconds: 5},
	})
}

func pendingTrack(id string) *donation.Track {
	return &donation.Track{ID: id, SourceID: "test", MediaRef: "https://youtu.be/" + id, Status: donation.StatusPending}
}

func TestRequest_ResolvesAndPublishesReady(t *testing.T) {
	resolver := &fakeResolver{path: "/media/song.mp3", title: "Song"}
	recorder := newEventRecorder()
	s := NewService(resolvingConfig(), recorder, resolver, metrics.NewCollectors())
	s.Start()
	defer s.Stop()

	if !s.Request(pendingTrack("t1")) {
		t.Fatal("expected request to be accepted")
	}

	ready, ok := recorder.wait(t).(donation.TrackReady)
	if !ok {
		t.Fatalf("expected TrackReady, got %T", ready)
	}
	if ready.TrackID != "t1" || ready.LocalPath != "/media/song.mp3" || ready.Title != "Song" {
		t.Errorf("unexpected ready event %+v", ready)
	}
}

func TestRequest_FailurePublishesTrackFailed(t *testing.T) {
	resolver := &fakeResolver{err: &donation.ResolutionError{TrackID: "t1", Err: errors.New("conversion refused")}}
	recorder := newEventRecorder()
	s := NewService(resolvingConfig(), recorder, resolver, metrics.NewCollectors())
	s.Start()
	defer s.Stop()

	s.Request(pendingTrack("t1"))

	failed, ok := recorder.wait(t).(donation.TrackFailed)
	if !ok {
		t.Fatalf("expected TrackFailed, got %T", failed)
	}
	if failed.TrackID != "t1" || failed.Reason == "" {
		t.Errorf("unexpected failure event %+v", failed)
	}
}

func TestRequest_DuplicateWhileInFlightIsNoOp(t *testing.T) {
	resolver := &fakeResolver{path: "/media/x.mp3", title: "X", block: make(chan struct{}), started: make(chan string, 1)}
	recorder := newEventRecorder()
	s := NewService(resolvingConfig(), recorder, resolver, metrics.NewCollectors())
	s.Start()
	defer s.Stop()

	track := pendingTrack("t1")
	if !s.Request(track) {
		t.Fatal("expected first request accepted")
	}
	<-resolver.started

	if s.Request(track) {
		t.Error("expected duplicate request while in flight to be rejected")
	}
	close(resolver.block)

	recorder.wait(t)
	if resolver.callCount() != 1 {
		t.Errorf("expected exactly one resolution, got %d", resolver.callCount())
	}
}

func TestRequest_AlreadyReadyTrackIsNoOp(t *testing.T) {
	resolver := &fakeResolver{}
	recorder := newEventRecorder()
	s := NewService(resolvingConfig(), recorder, resolver, metrics.NewCollectors())
	s.Start()
	defer s.Stop()

	ready := pendingTrack("t1")
	ready.Status = donation.StatusReady
	ready.LocalPath = "/media/already.mp3"

	if s.Request(ready) {
		t.Error("expected request for a ready track to be a no-op")
	}
	if resolver.callCount() != 0 {
		t.Errorf("expected no resolution, got %d", resolver.callCount())
	}
}

func TestStop_CancelsInFlightResolution(t *testing.T) {
	resolver := &fakeResolver{block: make(chan struct{}), started: make(chan string, 1)}
	recorder := newEventRecorder()
	s := NewService(resolvingConfig(), recorder, resolver, metrics.NewCollectors())
	s.Start()

	s.Request(pendingTrack("t1"))
	<-resolver.started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the in-flight resolution")
	}
}
