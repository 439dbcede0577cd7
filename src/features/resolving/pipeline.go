package resolving

import (
	"context"
	"log/slog"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/infra/artwork"
	"github.com/fatyzzz/donation-media-hub/src/infra/media"
	"github.com/fatyzzz/donation-media-hub/src/infra/tag"
)

const oembedTimeout = 10 * time.Second

// Pipeline turns a media reference into a tagged local audio file: lazy
// title resolution via oEmbed, download through the conversion API, cover
// art embed, tag readback. It implements donation.Resolver.
type Pipeline struct {
	converter *media.Converter
	oembed    *media.OEmbedClient
	artwork   *artwork.Service
	writer    *tag.Writer
	reader    *tag.Reader
}

// NewPipeline assembles the resolution pipeline.
func NewPipeline(converter *media.Converter, oembed *media.OEmbedClient, artworkService *artwork.Service, writer *tag.Writer, reader *tag.Reader) *Pipeline {
	return &Pipeline{
		converter: converter,
		oembed:    oembed,
		artwork:   artworkService,
		writer:    writer,
		reader:    reader,
	}
}

// Resolve produces a playable local file for the track and returns its path
// and final title. Tagging problems are logged, not fatal; the file is
// playable either way.
func (p *Pipeline) Resolve(ctx context.Context, track *donation.Track) (string, string, error) {
	title := track.Title
	var thumbnailURL string

	if media.IsYouTubeURL(track.MediaRef) {
		octx, cancel := context.WithTimeout(ctx, oembedTimeout)
		info, err := p.oembed.Lookup(octx, track.MediaRef)
		cancel()
		if err != nil {
			slog.Debug("oEmbed lookup failed, keeping fallback title", "mediaRef", track.MediaRef, "error", err)
		} else {
			if title == "" {
				title = info.Title
			}
			thumbnailURL = info.ThumbnailURL
		}
	}
	if title == "" {
		title = "Track"
	}

	path, err := p.converter.Download(ctx, track.MediaRef, title)
	if err != nil {
		return "", "", &donation.ResolutionError{TrackID: track.ID, Err: err}
	}

	cover, err := p.artwork.CoverFor(ctx, thumbnailURL)
	if err != nil {
		slog.Warn("Cover art unavailable", "track", track.ID, "error", err)
	}

	tagged := track.Clone()
	tagged.Title = title
	if err := p.writer.WriteTags(path, tagged, cover); err != nil {
		slog.Warn("Failed to tag downloaded file", "path", path, "error", err)
	} else if ok, err := p.reader.Verify(path, title); err != nil {
		slog.Warn("Tag readback failed", "path", path, "error", err)
	} else if !ok {
		slog.Warn("Tag readback returned a different title", "path", path, "title", title)
	}

	return path, title, nil
}
