package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/nfnt/resize"

	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/png"
)

const fetchTimeout = 10 * time.Second

// Service fetches video thumbnails and prepares them for embedding as
// cover art: decode (jpeg/png/gif/webp), bound to the configured size with
// Lanczos3, re-encode as JPEG.
type Service struct {
	config *config.Manager
	client *http.Client
}

// NewService creates an artwork service.
func NewService(cfg *config.Manager, client *http.Client) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{config: cfg, client: client}
}

// Enabled reports whether cover embedding is switched on.
func (s *Service) Enabled() bool {
	return s.config.Get().Downloads.Artwork.Embedded.Enabled
}

// CoverFor downloads the thumbnail at url and returns JPEG bytes ready for
// embedding. Returns (nil, nil) when embedding is disabled or url is empty.
func (s *Service) CoverFor(ctx context.Context, url string) ([]byte, error) {
	if !s.Enabled() || url == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail body: %w", err)
	}

	prepared, err := s.prepare(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("Cover art prepared", "url", url, "bytes", len(prepared))
	return prepared, nil
}

// prepare bounds the image to the configured size and re-encodes as JPEG.
func (s *Service) prepare(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode thumbnail: %w", err)
	}

	embedded := s.config.Get().Downloads.Artwork.Embedded
	maxSize := embedded.Size
	if maxSize > 0 {
		bounds := img.Bounds()
		width, height := bounds.Dx(), bounds.Dy()
		if width > maxSize || height > maxSize {
			if width > height {
				height = (height * maxSize) / width
				width = maxSize
			} else {
				width = (width * maxSize) / height
				height = maxSize
			}
			img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
		}
	}

	quality := embedded.Quality
	if quality <= 0 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode cover art: %w", err)
	}
	return buf.Bytes(), nil
}
