package metrics

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

const diskSweepInterval = 60 * time.Second

// Service keeps the queue gauges aligned with bus notifications and sweeps
// the media directory for disk usage.
type Service struct {
	collectors    *Collectors
	mediaDir      string
	notifications <-chan donation.Event

	mu            sync.RWMutex
	snapshot      donation.QueueSnapshot
	lastDiskBytes int64

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewService creates the metrics service. notifications is a bus observer
// subscription carrying QueueChanged events.
func NewService(collectors *Collectors, mediaDir string, notifications <-chan donation.Event) *Service {
	return &Service{
		collectors:    collectors,
		mediaDir:      mediaDir,
		notifications: notifications,
		stopChan:      make(chan struct{}),
	}
}

// Start launches the observer loop and the periodic disk sweep.
func (s *Service) Start() {
	s.wg.Add(2)
	go s.observeLoop()
	go s.sweepLoop()
}

// Stop halts both loops.
func (s *Service) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Service) observeLoop() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.notifications:
			if !ok {
				return
			}
			if changed, isQueue := event.(donation.QueueChanged); isQueue {
				s.applySnapshot(changed.Snapshot)
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) applySnapshot(snapshot donation.QueueSnapshot) {
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	counts := make(map[donation.TrackStatus]int)
	for _, t := range snapshot.Tracks {
		counts[t.Status]++
	}
	for _, status := range []donation.TrackStatus{
		donation.StatusPending, donation.StatusDownloading, donation.StatusReady,
		donation.StatusPlaying, donation.StatusPlayed, donation.StatusFailed,
	} {
		s.collectors.queueTracks.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func (s *Service) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(diskSweepInterval)
	defer ticker.Stop()

	s.sweepDiskUsage()
	for {
		select {
		case <-ticker.C:
			s.sweepDiskUsage()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) sweepDiskUsage() {
	var total int64
	err := filepath.WalkDir(s.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		slog.Warn("Media dir sweep failed", "dir", s.mediaDir, "error", err)
		return
	}
	s.collectors.mediaDirBytes.Set(float64(total))

	s.mu.Lock()
	s.lastDiskBytes = total
	s.mu.Unlock()
}

// Stats is the JSON summary served next to the Prometheus endpoint.
type Stats struct {
	QueueLength   int            `json:"queue_length"`
	CurrentIndex  int            `json:"current_index"`
	StatusCounts  map[string]int `json:"status_counts"`
	MediaDirBytes int64          `json:"media_dir_bytes"`
	SnapshotTaken time.Time      `json:"snapshot_taken"`
}

// Stats summarizes the latest observed snapshot.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, t := range s.snapshot.Tracks {
		counts[string(t.Status)]++
	}
	return Stats{
		QueueLength:   len(s.snapshot.Tracks),
		CurrentIndex:  s.snapshot.CurrentIndex,
		StatusCounts:  counts,
		MediaDirBytes: s.lastDiskBytes,
		SnapshotTaken: s.snapshot.TakenAt,
	}
}
