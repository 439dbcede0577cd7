package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
)

// QueueController is the slice of the queue manager the orchestrator needs.
type QueueController interface {
	Snapshot() (donation.QueueSnapshot, error)
	Advance(dir donation.Direction) (bool, error)
	MarkStatus(id string, status donation.TrackStatus) error
}

// Subscriber provides notification channels from the event bus.
type Subscriber interface {
	Subscribe(name string) <-chan donation.Event
	Unsubscribe(name string)
}

const subscriberName = "playback"

// Status describes the orchestrator for the transport API.
type Status struct {
	Enabled        bool    `json:"enabled"`
	Playing        bool    `json:"playing"`
	Paused         bool    `json:"paused"`
	TrackID        string  `json:"trackId,omitempty"`
	TrackTitle     string  `json:"trackTitle,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// Service watches the queue and drives the player: whenever it is idle and
// the current track is Ready, playback starts. Transport calls and queue
// notifications both funnel into the same start decision.
type Service struct {
	configManager *config.Manager
	queue         QueueController
	player        donation.Player
	bus           Subscriber

	mu         sync.Mutex
	currentID  string
	title      string
	startedAt  time.Time
	paused     bool
	manualStop bool
	generation int

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewService creates the playback orchestrator.
func NewService(cfgManager *config.Manager, queue QueueController, player donation.Player, bus Subscriber) *Service {
	return &Service{
		configManager: cfgManager,
		queue:         queue,
		player:        player,
		bus:           bus,
		stopChan:      make(chan struct{}),
	}
}

// Start subscribes to queue notifications and begins playing as soon as a
// ready track sits at the current position.
func (s *Service) Start() {
	events := s.bus.Subscribe(subscriberName)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				s.handleEvent(e)
			case <-s.stopChan:
				return
			}
		}
	}()

	// Tracks restored as Ready should start without waiting for an event.
	s.maybeStart()
}

// Shutdown stops playback and the notification loop.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.bus.Unsubscribe(subscriberName)
	if err := s.player.Stop(); err != nil {
		slog.Warn("Failed to stop player during shutdown", "error", err)
	}
	s.wg.Wait()
}

func (s *Service) handleEvent(e donation.Event) {
	switch event := e.(type) {
	case donation.QueueChanged:
		s.maybeStart()
	case donation.TrackStatusChanged:
		switch event.Status {
		case donation.StatusReady:
			s.maybeStart()
		case donation.StatusPlayed, donation.StatusFailed:
			// A skip (or failure) of the playing track cuts the player off.
			s.interrupt(event.TrackID)
		}
	}
}

// interrupt stops the player if trackID is what it is playing, then tries
// to start whatever is current now.
func (s *Service) interrupt(trackID string) {
	s.mu.Lock()
	if s.currentID != trackID {
		s.mu.Unlock()
		return
	}
	s.generation++ // the pending waiter must not act on this track
	s.currentID = ""
	s.title = ""
	s.paused = false
	s.mu.Unlock()

	if err := s.player.Stop(); err != nil {
		slog.Warn("Failed to stop interrupted playback", "track", trackID, "error", err)
	}
	s.maybeStart()
}

// maybeStart starts the current track when playback is enabled, the player
// is idle and the track is Ready.
func (s *Service) maybeStart() {
	if !s.configManager.Get().Playback.Enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID != "" {
		return
	}

	snapshot, err := s.queue.Snapshot()
	if err != nil {
		return
	}
	track := snapshot.Current()
	if track == nil || track.Status != donation.StatusReady || track.LocalPath == "" {
		return
	}
	s.startLocked(track)
}

// startLocked starts the player on the track. Caller holds the mutex.
func (s *Service) startLocked(track *donation.Track) {
	if err := s.player.Play(context.Background(), track.LocalPath); err != nil {
		slog.Error("Failed to start playback", "track", track.ID, "path", track.LocalPath, "error", err)
		if markErr := s.queue.MarkStatus(track.ID, donation.StatusFailed); markErr != nil {
			slog.Warn("Failed to mark unplayable track", "track", track.ID, "error", markErr)
		}
		return
	}

	s.currentID = track.ID
	s.title = track.Title
	s.startedAt = time.Now()
	s.paused = false
	s.manualStop = false
	s.generation++

	if err := s.queue.MarkStatus(track.ID, donation.StatusPlaying); err != nil {
		slog.Warn("Failed to mark track playing", "track", track.ID, "error", err)
	}
	slog.Info("Playback started", "track", track.ID, "title", track.Title)

	gen := s.generation
	done := s.player.Done()
	s.wg.Add(1)
	go s.await(gen, track.ID, done)
}

// await waits for the player to finish the track, then marks it played and
// auto-advances when configured. A playback shorter than the configured
// minimum is treated as a player malfunction: the queue does not advance, so
// a broken player cannot race through the whole queue.
func (s *Service) await(gen int, trackID string, done <-chan struct{}) {
	defer s.wg.Done()
	select {
	case <-done:
	case <-s.stopChan:
		return
	}

	s.mu.Lock()
	if s.generation != gen || s.currentID != trackID {
		s.mu.Unlock()
		return
	}
	elapsed := time.Since(s.startedAt)
	manual := s.manualStop
	s.currentID = ""
	s.title = ""
	s.paused = false
	s.mu.Unlock()

	if err := s.queue.MarkStatus(trackID, donation.StatusPlayed); err != nil {
		slog.Warn("Failed to mark track played", "track", trackID, "error", err)
	}

	cfg := s.configManager.Get().Playback
	minPlay := time.Duration(cfg.MinPlaySeconds * float64(time.Second))
	switch {
	case manual:
		slog.Info("Playback stopped", "track", trackID, "elapsed", elapsed.Round(time.Second))
	case !cfg.AutoAdvance:
		slog.Info("Playback finished", "track", trackID, "elapsed", elapsed.Round(time.Second))
	case elapsed < minPlay:
		slog.Warn("Playback ended suspiciously early, not advancing", "track", trackID, "elapsed", elapsed, "minimum", minPlay)
	default:
		slog.Info("Playback finished, advancing", "track", trackID, "elapsed", elapsed.Round(time.Second))
		if _, err := s.queue.Advance(donation.Next); err != nil {
			slog.Warn("Failed to advance after playback", "error", err)
			return
		}
		s.maybeStart()
	}
}

// Play starts or resumes playback.
func (s *Service) Play() error {
	s.mu.Lock()
	if s.currentID != "" && s.paused {
		s.paused = false
		s.mu.Unlock()
		return s.player.Resume()
	}
	s.mu.Unlock()
	s.maybeStart()
	return nil
}

// Pause suspends the current playback.
func (s *Service) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID == "" || s.paused {
		return nil
	}
	if err := s.player.Pause(); err != nil {
		return err
	}
	s.paused = true
	return nil
}

// Resume continues a paused playback.
func (s *Service) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID == "" || !s.paused {
		return nil
	}
	if err := s.player.Resume(); err != nil {
		return err
	}
	s.paused = false
	return nil
}

// Stop ends the current playback without advancing the queue. The track is
// still marked played.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.currentID == "" {
		s.mu.Unlock()
		return nil
	}
	s.manualStop = true
	s.mu.Unlock()
	return s.player.Stop()
}

// Status reports the orchestrator state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Enabled: s.configManager.Get().Playback.Enabled,
		Playing: s.currentID != "",
		Paused:  s.paused,
		TrackID: s.currentID,
	}
	if s.currentID != "" {
		st.TrackTitle = s.title
		st.ElapsedSeconds = time.Since(s.startedAt).Seconds()
	}
	return st
}
