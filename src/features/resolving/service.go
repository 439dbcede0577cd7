package resolving

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/metrics"
)

const requestBuffer = 32

// Service drains resolution requests with a bounded pool of workers. The
// queue manager dispatches one request per Pending track in the playback
// horizon; workers resolve and report TrackReady/TrackFailed on the bus.
type Service struct {
	configManager *config.Manager
	publisher     donation.Publisher
	resolver      donation.Resolver
	collectors    *metrics.Collectors

	requests chan *donation.Track

	mu       sync.Mutex
	inFlight map[string]struct{}
	stopped  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the resolving service.
func NewService(cfgManager *config.Manager, publisher donation.Publisher, resolver donation.Resolver, collectors *metrics.Collectors) *Service {
	return &Service{
		configManager: cfgManager,
		publisher:     publisher,
		resolver:      resolver,
		collectors:    collectors,
		requests:      make(chan *donation.Track, requestBuffer),
		inFlight:      make(map[string]struct{}),
	}
}

// Start launches the worker pool.
func (s *Service) Start() {
	workers := s.configManager.Get().Downloads.MaxConcurrent
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	slog.Info("Download workers started", "count", workers)
}

// Stop cancels in-flight resolutions and waits for the workers to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Request asks for a track to be resolved. Duplicate requests for a track
// already in flight or already resolved are no-ops. The caller's track is
// not touched; workers operate on a copy.
func (s *Service) Request(track *donation.Track) bool {
	if track.LocalPath != "" || track.Status == donation.StatusReady {
		return false
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if _, dup := s.inFlight[track.ID]; dup {
		s.mu.Unlock()
		return false
	}
	s.inFlight[track.ID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.requests <- track.Clone():
		return true
	default:
		// The horizon keeps the request volume tiny; a full buffer means
		// something is badly stuck, and the next dispatch retries.
		s.release(track.ID)
		slog.Warn("Resolution request buffer full, dropping request", "track", track.ID)
		return false
	}
}

// Active returns the ids of tracks currently being resolved.
func (s *Service) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.inFlight))
	for id := range s.inFlight {
		out = append(out, id)
	}
	return out
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case track := <-s.requests:
			s.process(ctx, track)
		}
	}
}

func (s *Service) process(ctx context.Context, track *donation.Track) {
	defer s.release(track.ID)

	timeout := time.Duration(s.configManager.Get().Downloads.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	path, title, err := s.resolver.Resolve(rctx, track)
	elapsed := time.Since(start)

	if err != nil {
		s.collectors.DownloadObserved("failed", elapsed)
		slog.Error("Track resolution failed", "track", track.ID, "mediaRef", track.MediaRef, "error", err)
		if pubErr := s.publisher.Publish(ctx, donation.TrackFailed{TrackID: track.ID, Reason: err.Error()}); pubErr != nil {
			slog.Warn("Failed to publish track failure", "track", track.ID, "error", pubErr)
		}
		return
	}

	s.collectors.DownloadObserved("ready", elapsed)
	slog.Info("Track resolved", "track", track.ID, "title", title, "path", path, "took", elapsed.Round(time.Millisecond))
	if pubErr := s.publisher.Publish(ctx, donation.TrackReady{TrackID: track.ID, LocalPath: path, Title: title}); pubErr != nil {
		slog.Warn("Failed to publish track ready", "track", track.ID, "error", pubErr)
	}
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}
