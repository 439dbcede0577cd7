package polling

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/metrics"
)

type fakeSource struct {
	id     string
	events []donation.DonationEvent
	err    error
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) Poll(ctx context.Context) ([]donation.DonationEvent, error) {
	return f.events, f.err
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []donation.Event
	err    error
}

func (p *capturingPublisher) Publish(ctx context.Context, e donation.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) donations() []donation.DonationReceived {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []donation.DonationReceived
	for _, e := range p.events {
		if d, ok := e.(donation.DonationReceived); ok {
			out = append(out, d)
		}
	}
	return out
}

func testConfig() *config.Manager {
	return config.NewManager(&config.Config{
		Sources: config.Sources{
			DonationAlerts: config.Source{Enabled: true, Token: "tok", IntervalSeconds: 3},
		},
	})
}

func event(marker string) donation.DonationEvent {
	return donation.DonationEvent{
		SourceID:   "donationalerts",
		ExternalID: marker,
		Marker:     donation.Marker(marker),
		MediaRef:   "https://youtu.be/" + marker,
	}
}

func TestCycle_PublishesNewEventsAndAdvancesMarker(t *testing.T) {
	src := &fakeSource{id: "donationalerts", events: []donation.DonationEvent{event("001"), event("002")}}
	pub := &capturingPublisher{}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{src}, nil)

	s.cycle(src)

	got := pub.donations()
	if len(got) != 2 {
		t.Fatalf("expected 2 donations published, got %d", len(got))
	}
	if s.Marker("donationalerts") != donation.Marker("002") {
		t.Errorf("expected marker advanced to 002, got %s", s.Marker("donationalerts"))
	}

	// The marker advance itself must be on the bus for persistence.
	var sawAdvance bool
	for _, e := range pub.events {
		if m, ok := e.(donation.MarkerAdvanced); ok && m.Marker == donation.Marker("002") {
			sawAdvance = true
		}
	}
	if !sawAdvance {
		t.Error("expected a MarkerAdvanced event")
	}
}

func TestCycle_ReplayedEventsAreDropped(t *testing.T) {
	src := &fakeSource{id: "donationalerts", events: []donation.DonationEvent{event("001"), event("002")}}
	pub := &capturingPublisher{}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{src}, nil)

	s.cycle(src)
	s.cycle(src) // source returns the same batch again

	if got := len(pub.donations()); got != 2 {
		t.Errorf("expected replayed events deduplicated, got %d donations", got)
	}
}

func TestCycle_RestoredMarkerFiltersOldEvents(t *testing.T) {
	src := &fakeSource{id: "donationalerts", events: []donation.DonationEvent{event("001"), event("002"), event("003")}}
	pub := &capturingPublisher{}
	markers := map[string]donation.Marker{"donationalerts": "002"}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{src}, markers)

	s.cycle(src)

	got := pub.donations()
	if len(got) != 1 || got[0].Donation.ExternalID != "003" {
		t.Fatalf("expected only event 003 past the restored marker, got %+v", got)
	}
}

func TestCycle_MarkerHeldBackWhenBusRejects(t *testing.T) {
	src := &fakeSource{id: "donationalerts", events: []donation.DonationEvent{event("001")}}
	pub := &capturingPublisher{err: errors.New("bus closed")}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{src}, nil)

	s.cycle(src)

	if got := s.Marker("donationalerts"); got != "" {
		t.Errorf("expected marker unchanged after failed hand-off, got %s", got)
	}
}

func TestCycle_AuthFailureMarksSourceUnhealthyOnly(t *testing.T) {
	bad := &fakeSource{id: "donationalerts", err: &donation.AuthError{SourceID: "donationalerts", Err: errors.New("401")}}
	pub := &capturingPublisher{}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{bad}, nil)

	s.cycle(bad)

	statuses := s.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Healthy {
		t.Error("expected source marked unhealthy after auth failure")
	}
	if statuses[0].ConsecutiveFailures != 1 {
		t.Errorf("expected 1 consecutive failure, got %d", statuses[0].ConsecutiveFailures)
	}

	var sawState bool
	for _, e := range pub.events {
		if st, ok := e.(donation.SourceStateChanged); ok && !st.Healthy {
			sawState = true
		}
	}
	if !sawState {
		t.Error("expected a SourceStateChanged notification")
	}
}

func TestCycle_TransientFailureKeepsSourceHealthy(t *testing.T) {
	flaky := &fakeSource{id: "donationalerts", err: &donation.TransientNetworkError{Op: "poll", Err: errors.New("timeout")}}
	pub := &capturingPublisher{}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{flaky}, nil)

	s.cycle(flaky)

	if st := s.Statuses()[0]; !st.Healthy {
		t.Error("expected transient failure to keep the source healthy")
	}
}

func TestCycle_EmptyTokenDisablesSource(t *testing.T) {
	src := &fakeSource{id: "donatex", events: []donation.DonationEvent{event("001")}}
	pub := &capturingPublisher{}
	s := NewService(testConfig(), pub, metrics.NewCollectors(), []donation.Source{src}, nil)

	s.cycle(src)

	if len(pub.events) != 0 {
		t.Errorf("expected no events from a token-less source, got %d", len(pub.events))
	}
}
