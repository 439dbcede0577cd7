package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the pipeline's Prometheus instruments. Pollers and the
// download workers increment counters; the queue observer keeps the gauges
// in sync with the latest snapshot.
type Collectors struct {
	registry *prometheus.Registry

	pollsTotal       *prometheus.CounterVec
	donationsTotal   *prometheus.CounterVec
	downloadsTotal   *prometheus.CounterVec
	downloadDuration prometheus.Histogram
	queueTracks      *prometheus.GaugeVec
	mediaDirBytes    prometheus.Gauge
}

// NewCollectors creates and registers the pipeline instruments on a fresh
// registry.
func NewCollectors() *Collectors {
	registry := prometheus.NewRegistry()

	c := &Collectors{
		registry: registry,
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediahub_polls_total",
			Help: "Poll cycles per source and outcome.",
		}, []string{"source", "outcome"}),
		donationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediahub_donations_total",
			Help: "Accepted donation events per source.",
		}, []string{"source"}),
		downloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediahub_downloads_total",
			Help: "Finished track resolutions per outcome.",
		}, []string{"outcome"}),
		downloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediahub_download_duration_seconds",
			Help:    "Wall time of a full track resolution.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		queueTracks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mediahub_queue_tracks",
			Help: "Tracks currently in the queue by status.",
		}, []string{"status"}),
		mediaDirBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mediahub_media_dir_bytes",
			Help: "Disk usage of the media directory.",
		}),
	}

	registry.MustRegister(
		c.pollsTotal,
		c.donationsTotal,
		c.downloadsTotal,
		c.downloadDuration,
		c.queueTracks,
		c.mediaDirBytes,
	)
	return c
}

// Registry returns the registry backing the /metrics endpoint.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// PollObserved counts a poll cycle. Outcome is "ok", "transient" or "auth".
func (c *Collectors) PollObserved(source, outcome string) {
	if c == nil {
		return
	}
	c.pollsTotal.WithLabelValues(source, outcome).Inc()
}

// DonationAccepted counts a deduplicated donation handed to the bus.
func (c *Collectors) DonationAccepted(source string) {
	if c == nil {
		return
	}
	c.donationsTotal.WithLabelValues(source).Inc()
}

// DownloadObserved counts a finished resolution and its duration. Outcome
// is "ready" or "failed".
func (c *Collectors) DownloadObserved(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.downloadsTotal.WithLabelValues(outcome).Inc()
	c.downloadDuration.Observe(elapsed.Seconds())
}
