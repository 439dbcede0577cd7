package queue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/infra/sources"
)

// ErrStopped is returned by public operations after the manager shut down.
var ErrStopped = errors.New("queue manager is stopped")

// ErrTrackNotFound is returned when a mutation names an unknown track.
var ErrTrackNotFound = errors.New("track not found in queue")

const persistTimeout = 5 * time.Second

// Dispatcher hands resolution requests to the download pipeline. Request
// must not block.
type Dispatcher interface {
	Request(track *donation.Track) bool
}

// Service is the queue manager: the single writer of the queue. One
// goroutine consumes producer events from the bus and mutation requests
// from the public operations, so every mutation is serialized and the queue
// needs no locks. Observers only ever see snapshots.
type Service struct {
	configManager *config.Manager
	store         donation.StateStore
	publisher     donation.Publisher
	dispatcher    Dispatcher

	queue   *donation.Queue
	markers map[string]donation.Marker

	producerEvents <-chan donation.Event
	mutations      chan mutation

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

type mutationKind int

const (
	enqueueOp mutationKind = iota
	advanceOp
	skipOp
	markStatusOp
	snapshotOp
	clearOp
	jumpStartOp
)

type mutation struct {
	kind    mutationKind
	event   donation.DonationEvent
	dir     donation.Direction
	trackID string
	status  donation.TrackStatus
	reply   chan mutationResult
}

type mutationResult struct {
	trackID  string
	moved    bool
	removed  int
	snapshot donation.QueueSnapshot
	err      error
}

// NewService creates the queue manager, restoring the queue and markers
// from the persisted state (nil means a fresh start). producerEvents is the
// bus's consumer channel; this service is its only reader.
func NewService(cfgManager *config.Manager, store donation.StateStore, publisher donation.Publisher, dispatcher Dispatcher, producerEvents <-chan donation.Event, state *donation.PersistedState) *Service {
	s := &Service{
		configManager:  cfgManager,
		store:          store,
		publisher:      publisher,
		dispatcher:     dispatcher,
		markers:        make(map[string]donation.Marker),
		producerEvents: producerEvents,
		mutations:      make(chan mutation),
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
	if state != nil {
		s.queue = state.RestoreQueue()
		for id, m := range state.Markers {
			s.markers[id] = m
		}
		slog.Info("Queue restored", "tracks", s.queue.Len(), "currentIndex", s.queue.CurrentIndex())
	} else {
		s.queue = donation.NewQueue()
	}
	return s
}

// Markers returns a copy of the restored per-source cursors, used to seed
// the pollers at startup. Only safe before Run starts.
func (s *Service) Markers() map[string]donation.Marker {
	out := make(map[string]donation.Marker, len(s.markers))
	for id, m := range s.markers {
		out[id] = m
	}
	return out
}

// Run is the single-writer loop. It exits after Stop, draining pending
// work and persisting a final snapshot first.
func (s *Service) Run() {
	defer close(s.doneChan)

	// Resolution for tracks restored inside the horizon resumes here.
	s.dispatchResolution()

	for {
		select {
		case m := <-s.mutations:
			s.apply(m)
		case e, ok := <-s.producerEvents:
			if !ok {
				s.producerEvents = nil
				continue
			}
			s.applyEvent(e)
		case <-s.stopChan:
			s.drain()
			s.persist()
			slog.Info("Queue manager stopped", "tracks", s.queue.Len())
			return
		}
	}
}

// Stop shuts the manager down and waits for the final persist. It is safe
// to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.doneChan
}

func (s *Service) drain() {
	for {
		select {
		case m := <-s.mutations:
			s.apply(m)
		case e, ok := <-s.producerEvents:
			if !ok {
				s.producerEvents = nil
				continue
			}
			s.applyEvent(e)
		default:
			return
		}
	}
}

// Enqueue creates a Pending track for the donation at the tail and requests
// its resolution. Replaying an event with the same external id returns the
// existing track's id without creating a second one.
func (s *Service) Enqueue(event donation.DonationEvent) (string, error) {
	r := s.do(mutation{kind: enqueueOp, event: event})
	return r.trackID, r.err
}

// Advance moves the current index one step, skipping failed tracks. It
// reports whether the index moved; both queue ends are hard boundaries.
func (s *Service) Advance(dir donation.Direction) (bool, error) {
	r := s.do(mutation{kind: advanceOp, dir: dir})
	return r.moved, r.err
}

// Skip marks the current track Played regardless of playback completion and
// advances to the next playable track.
func (s *Service) Skip() (bool, error) {
	r := s.do(mutation{kind: skipOp})
	return r.moved, r.err
}

// MarkStatus transitions a track's status. Only forward transitions are
// applied; invalid ones are rejected with InvalidTransitionError and leave
// the queue untouched. Repeating a track's current status is a no-op.
func (s *Service) MarkStatus(id string, status donation.TrackStatus) error {
	return s.do(mutation{kind: markStatusOp, trackID: id, status: status}).err
}

// Snapshot returns an immutable copy of the queue for observers.
func (s *Service) Snapshot() (donation.QueueSnapshot, error) {
	r := s.do(mutation{kind: snapshotOp})
	return r.snapshot, r.err
}

// Clear removes every track except the one currently playing and deletes
// their local files. It returns the number of removed tracks.
func (s *Service) Clear() (int, error) {
	r := s.do(mutation{kind: clearOp})
	return r.removed, r.err
}

// JumpToStart moves the current index back to the head of the queue.
func (s *Service) JumpToStart() (bool, error) {
	r := s.do(mutation{kind: jumpStartOp})
	return r.moved, r.err
}

func (s *Service) do(m mutation) mutationResult {
	m.reply = make(chan mutationResult, 1)
	select {
	case s.mutations <- m:
	case <-s.doneChan:
		return mutationResult{err: ErrStopped}
	}
	select {
	case r := <-m.reply:
		return r
	case <-s.doneChan:
		return mutationResult{err: ErrStopped}
	}
}

func (s *Service) apply(m mutation) {
	var r mutationResult
	switch m.kind {
	case enqueueOp:
		r.trackID, r.err = s.enqueue(m.event)
	case advanceOp:
		r.moved = s.advance(m.dir)
	case skipOp:
		r.moved = s.skip()
	case markStatusOp:
		r.err = s.markStatus(m.trackID, m.status)
	case snapshotOp:
		r.snapshot = s.queue.Snapshot()
	case clearOp:
		r.removed = s.clear()
	case jumpStartOp:
		r.moved = s.jumpToStart()
	}
	m.reply <- r
}

func (s *Service) applyEvent(e donation.Event) {
	switch event := e.(type) {
	case donation.DonationReceived:
		if _, err := s.enqueue(event.Donation); err != nil {
			slog.Error("Failed to enqueue donation", "source", event.Donation.SourceID, "externalID", event.Donation.ExternalID, "error", err)
		}
	case donation.TrackReady:
		s.trackReady(event)
	case donation.TrackFailed:
		s.trackFailed(event)
	case donation.MarkerAdvanced:
		s.markerAdvanced(event)
	default:
		slog.Warn("Queue manager received an unexpected event", "event", e.EventName())
	}
}

func (s *Service) enqueue(event donation.DonationEvent) (string, error) {
	id := donation.GenerateTrackID(event.SourceID, event.ExternalID)
	if s.queue.Has(id) {
		slog.Debug("Duplicate donation ignored", "track", id, "externalID", event.ExternalID)
		return id, nil
	}
	// A marker at or below the persisted cursor means the donation was
	// already processed and its track evicted; re-creating it would replay
	// old donations after a restart.
	if event.Marker != "" && !event.Marker.After(s.markers[event.SourceID]) {
		slog.Debug("Donation at or below the source marker ignored", "source", event.SourceID, "marker", event.Marker)
		return id, nil
	}

	track := donation.NewTrack(event)
	if err := track.Validate(); err != nil {
		return "", err
	}

	s.queue.Append(track)
	slog.Info("Track enqueued", "track", track.ID, "source", track.SourceID, "title", track.Title, "position", track.Position)

	s.dispatchResolution()
	s.trimAndRelease()
	s.persist()
	s.publishQueueChanged()
	return track.ID, nil
}

func (s *Service) trackReady(event donation.TrackReady) {
	track := s.queue.Track(event.TrackID)
	if track == nil {
		// Evicted while downloading; the file has no owner anymore.
		slog.Warn("Ready report for an evicted track, removing file", "track", event.TrackID, "path", event.LocalPath)
		removeFile(event.LocalPath)
		return
	}
	if track.LocalPath != "" {
		if event.LocalPath != track.LocalPath {
			slog.Debug("Duplicate resolution discarded", "track", track.ID, "path", event.LocalPath)
			removeFile(event.LocalPath)
		}
		return
	}

	if event.Title != "" {
		track.Title = event.Title
	}
	if err := track.SetStatus(donation.StatusReady); err != nil {
		slog.Warn("Ready report rejected", "track", track.ID, "status", track.Status, "error", err)
		removeFile(event.LocalPath)
		return
	}
	track.LocalPath = event.LocalPath
	track.Error = ""
	slog.Info("Track ready", "track", track.ID, "title", track.Title, "path", track.LocalPath)

	s.trimAndRelease()
	s.persist()
	s.publishStatusChanged(track.ID, donation.StatusReady)
	s.publishQueueChanged()
}

func (s *Service) trackFailed(event donation.TrackFailed) {
	track := s.queue.Track(event.TrackID)
	if track == nil {
		return
	}
	if err := track.SetStatus(donation.StatusFailed); err != nil {
		slog.Warn("Failure report rejected", "track", track.ID, "status", track.Status, "error", err)
		return
	}
	track.Error = event.Reason
	slog.Warn("Track failed", "track", track.ID, "reason", event.Reason)

	s.trimAndRelease()
	s.persist()
	s.publishStatusChanged(track.ID, donation.StatusFailed)
	s.publishQueueChanged()
}

func (s *Service) markerAdvanced(event donation.MarkerAdvanced) {
	if !event.Marker.After(s.markers[event.SourceID]) {
		return
	}
	s.markers[event.SourceID] = event.Marker
	s.persist()
}

func (s *Service) advance(dir donation.Direction) bool {
	if !s.queue.Advance(dir) {
		return false
	}
	s.afterStructural()
	return true
}

func (s *Service) skip() bool {
	current := s.queue.Current()
	if current == nil {
		return false
	}
	skippedID := current.ID
	marked := current.Status.CanTransition(donation.StatusPlayed)
	if marked {
		_ = current.SetStatus(donation.StatusPlayed)
	}
	moved := s.queue.Advance(donation.Next)
	s.afterStructural()
	if marked {
		s.publishStatusChanged(skippedID, donation.StatusPlayed)
	}
	return moved
}

func (s *Service) markStatus(id string, status donation.TrackStatus) error {
	track := s.queue.Track(id)
	if track == nil {
		return ErrTrackNotFound
	}
	if track.Status == status {
		// Duplicate notifications stay idempotent.
		return nil
	}
	if err := track.SetStatus(status); err != nil {
		slog.Warn("Status transition rejected", "track", id, "error", err)
		return err
	}

	// A new playing track displaces any previous one so at most one track
	// is ever playing.
	if status == donation.StatusPlaying {
		for _, other := range s.queue.Tracks() {
			if other.ID != id && other.Status == donation.StatusPlaying {
				_ = other.SetStatus(donation.StatusPlayed)
				s.publishStatusChanged(other.ID, donation.StatusPlayed)
			}
		}
	}

	s.trimAndRelease()
	s.persist()
	s.publishStatusChanged(id, status)
	s.publishQueueChanged()
	return nil
}

func (s *Service) clear() int {
	removed := s.queue.Clear()
	for _, t := range removed {
		removeFile(t.LocalPath)
	}
	if len(removed) > 0 {
		slog.Info("Queue cleared", "removed", len(removed))
		s.persist()
		s.publishQueueChanged()
	}
	return len(removed)
}

func (s *Service) jumpToStart() bool {
	if !s.queue.JumpToStart() {
		return false
	}
	s.afterStructural()
	return true
}

// afterStructural runs the shared tail of every structural mutation:
// trimming, resolution dispatch for the new horizon, persistence and the
// observer notification.
func (s *Service) afterStructural() {
	s.trimAndRelease()
	s.dispatchResolution()
	s.persist()
	s.publishQueueChanged()
}

// dispatchResolution requests downloads for Pending tracks in the playback
// horizon: the current track and the one after it. Keeping resolution
// inside the horizon means a ready file always sits inside the trim window.
func (s *Service) dispatchResolution() {
	current := s.queue.CurrentIndex()
	if current < 0 {
		return
	}
	tracks := s.queue.Tracks()
	for i := current; i <= current+1 && i < len(tracks); i++ {
		track := tracks[i]
		if track.Status != donation.StatusPending {
			continue
		}
		if s.dispatcher.Request(track) {
			_ = track.SetStatus(donation.StatusDownloading)
			s.publishStatusChanged(track.ID, donation.StatusDownloading)
			slog.Debug("Resolution dispatched", "track", track.ID, "position", i)
		}
	}
}

func (s *Service) trimAndRelease() {
	evicted := s.queue.Trim()
	for _, t := range evicted {
		removeFile(t.LocalPath)
		slog.Debug("Track evicted", "track", t.ID, "title", t.Title, "status", t.Status)
	}
}

func (s *Service) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	state := donation.NewPersistedState(s.queue.Snapshot(), s.markers, s.credentials())
	if err := s.store.Save(ctx, state); err != nil {
		// Keep running in memory; the next mutation retries the save.
		slog.Error("Failed to persist queue state", "error", err)
	}
}

// credentials snapshots the source tokens so tokens set through the API
// survive a restart even when the config file is not writable.
func (s *Service) credentials() map[string]string {
	cfg := s.configManager.Get().Sources
	creds := make(map[string]string, 2)
	if cfg.DonationAlerts.Token != "" {
		creds[sources.DonationAlertsID] = cfg.DonationAlerts.Token
	}
	if cfg.DonateX.Token != "" {
		creds[sources.DonateXID] = cfg.DonateX.Token
	}
	return creds
}

func (s *Service) publishQueueChanged() {
	if err := s.publisher.Publish(context.Background(), donation.QueueChanged{Snapshot: s.queue.Snapshot()}); err != nil {
		slog.Warn("Failed to publish queue change", "error", err)
	}
}

func (s *Service) publishStatusChanged(id string, status donation.TrackStatus) {
	if err := s.publisher.Publish(context.Background(), donation.TrackStatusChanged{TrackID: id, Status: status}); err != nil {
		slog.Warn("Failed to publish status change", "track", id, "error", err)
	}
}

// SweepMediaDir removes audio files in the media directory that no track in
// the restored queue references. Run once at startup, before playback.
func (s *Service) SweepMediaDir() {
	mediaDir := s.configManager.Get().MediaPath
	referenced := make(map[string]struct{})
	for _, t := range s.queue.Tracks() {
		if t.LocalPath != "" {
			referenced[filepath.Clean(t.LocalPath)] = struct{}{}
		}
	}

	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		slog.Warn("Media dir sweep skipped", "dir", mediaDir, "error", err)
		return
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".mp3" && ext != ".flac" {
			continue
		}
		path := filepath.Clean(filepath.Join(mediaDir, entry.Name()))
		if _, ok := referenced[path]; ok {
			continue
		}
		removeFile(path)
		removed++
	}
	if removed > 0 {
		slog.Info("Swept orphaned media files", "dir", mediaDir, "removed", removed)
	}
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove media file", "path", path, "error", err)
	}
}
