package polling

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/metrics"
	"github.com/fatyzzz/donation-media-hub/src/infra/sources"
)

const pollTimeout = 15 * time.Second

// SourceStatus is the observable health of one donation source.
type SourceStatus struct {
	ID                  string          `json:"id"`
	Enabled             bool            `json:"enabled"`
	Healthy             bool            `json:"healthy"`
	LastError           string          `json:"last_error,omitempty"`
	LastPoll            time.Time       `json:"last_poll"`
	LastMarker          donation.Marker `json:"last_marker,omitempty"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	EventsAccepted      int64           `json:"events_accepted"`
}

// Service runs one poll loop per registered donation source. Each cycle
// fetches, drops events at or below the persisted marker, publishes the
// rest in ascending marker order and advances the marker only after the bus
// accepted them. Sources are isolated fault domains; one failing never
// stops the others.
type Service struct {
	configManager *config.Manager
	publisher     donation.Publisher
	collectors    *metrics.Collectors
	sources       []donation.Source

	mu       sync.RWMutex
	markers  map[string]donation.Marker
	statuses map[string]*SourceStatus

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewService creates the polling service. markers carries the persisted
// per-source cursors; a missing entry means the source starts from zero.
func NewService(cfgManager *config.Manager, publisher donation.Publisher, collectors *metrics.Collectors, srcs []donation.Source, markers map[string]donation.Marker) *Service {
	s := &Service{
		configManager: cfgManager,
		publisher:     publisher,
		collectors:    collectors,
		sources:       srcs,
		markers:       make(map[string]donation.Marker),
		statuses:      make(map[string]*SourceStatus),
		stopChan:      make(chan struct{}),
	}
	for id, m := range markers {
		s.markers[id] = m
	}
	for _, src := range srcs {
		s.statuses[src.ID()] = &SourceStatus{ID: src.ID(), Healthy: true, LastMarker: s.markers[src.ID()]}
	}
	return s
}

// Start launches one poll loop per source. Loops for sources without a
// token idle until a token appears in the config, so credential updates
// take effect without a restart.
func (s *Service) Start() {
	for _, src := range s.sources {
		s.wg.Add(1)
		go s.pollLoop(src)
		if s.sourceConfig(src.ID()).Token == "" {
			slog.Info("Donation source has no token configured, poller idle", "source", src.ID())
		} else {
			slog.Info("Donation source poller started", "source", src.ID())
		}
	}
}

// Stop halts all poll loops and waits for in-flight cycles to finish.
func (s *Service) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// Statuses returns the current health of every source.
func (s *Service) Statuses() []SourceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SourceStatus, 0, len(s.statuses))
	for _, src := range s.sources {
		out = append(out, *s.statuses[src.ID()])
	}
	return out
}

// Marker returns the current cursor for a source.
func (s *Service) Marker(sourceID string) donation.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markers[sourceID]
}

func (s *Service) pollLoop(src donation.Source) {
	defer s.wg.Done()
	for {
		interval := s.interval(src.ID())
		select {
		case <-time.After(interval):
			s.cycle(src)
		case <-s.stopChan:
			return
		}
	}
}

// cycle runs one poll for one source. A failed cycle never blocks the next.
func (s *Service) cycle(src donation.Source) {
	id := src.ID()
	cfg := s.sourceConfig(id)
	if !cfg.Enabled || cfg.Token == "" {
		s.updateStatus(id, func(st *SourceStatus) { st.Enabled = false })
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	events, err := src.Poll(ctx)
	now := time.Now()
	if err != nil {
		s.recordFailure(ctx, id, now, err)
		return
	}
	s.collectors.PollObserved(id, "ok")

	last := s.Marker(id)
	published := last
	accepted := 0
	for _, event := range events {
		if !event.Marker.After(last) {
			continue
		}
		if err := s.publisher.Publish(ctx, donation.DonationReceived{Donation: event}); err != nil {
			slog.Warn("Bus rejected donation event, marker held back", "source", id, "error", err)
			break
		}
		s.collectors.DonationAccepted(id)
		published = event.Marker
		accepted++
	}

	// The marker moves only past events the bus actually accepted, so a
	// failed hand-off re-fetches instead of dropping donations.
	if published.After(last) {
		s.setMarker(id, published)
		if err := s.publisher.Publish(ctx, donation.MarkerAdvanced{SourceID: id, Marker: published}); err != nil {
			slog.Warn("Failed to publish marker advance", "source", id, "error", err)
		}
	}

	s.updateStatus(id, func(st *SourceStatus) {
		wasUnhealthy := !st.Healthy
		st.Enabled = true
		st.Healthy = true
		st.LastError = ""
		st.LastPoll = now
		st.LastMarker = published
		st.ConsecutiveFailures = 0
		st.EventsAccepted += int64(accepted)
		if wasUnhealthy {
			s.publishStateChange(id, true, "source recovered")
		}
	})

	if accepted > 0 {
		slog.Info("Donations accepted", "source", id, "count", accepted, "marker", published)
	}
}

func (s *Service) recordFailure(ctx context.Context, id string, now time.Time, err error) {
	var authErr *donation.AuthError
	isAuth := errors.As(err, &authErr)
	if isAuth {
		s.collectors.PollObserved(id, "auth")
		slog.Error("Donation source authentication failed", "source", id, "error", err)
	} else {
		s.collectors.PollObserved(id, "transient")
		slog.Warn("Donation source poll failed, retrying next interval", "source", id, "error", err)
	}

	s.updateStatus(id, func(st *SourceStatus) {
		wasHealthy := st.Healthy
		st.Enabled = true
		st.LastPoll = now
		st.LastError = err.Error()
		st.ConsecutiveFailures++
		if isAuth {
			st.Healthy = false
			if wasHealthy {
				s.publishStateChange(id, false, err.Error())
			}
		}
	})
}

// publishStateChange is called with the status mutex held; the bus fan-out
// path never blocks, so that is safe.
func (s *Service) publishStateChange(id string, healthy bool, message string) {
	if err := s.publisher.Publish(context.Background(), donation.SourceStateChanged{SourceID: id, Healthy: healthy, Message: message}); err != nil {
		slog.Warn("Failed to publish source state change", "source", id, "error", err)
	}
}

func (s *Service) updateStatus(id string, apply func(*SourceStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[id]
	if !ok {
		st = &SourceStatus{ID: id}
		s.statuses[id] = st
	}
	apply(st)
}

func (s *Service) setMarker(id string, marker donation.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if marker.After(s.markers[id]) {
		s.markers[id] = marker
	}
}

func (s *Service) sourceConfig(id string) config.Source {
	cfg := s.configManager.Get().Sources
	switch id {
	case sources.DonationAlertsID:
		return cfg.DonationAlerts
	case sources.DonateXID:
		return cfg.DonateX
	}
	return config.Source{}
}

func (s *Service) interval(id string) time.Duration {
	seconds := s.sourceConfig(id).IntervalSeconds
	if seconds <= 0 {
		seconds = 3
	}
	return time.Duration(seconds) * time.Second
}
