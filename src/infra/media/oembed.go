package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

const oembedURL = "https://www.youtube.com/oembed"

// OEmbedInfo is the subset of the oEmbed response the pipeline uses.
type OEmbedInfo struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// OEmbedClient resolves YouTube video titles and thumbnails. Lookups are
// cached in memory for the process lifetime; donation streams repeat the
// same links often.
type OEmbedClient struct {
	client *http.Client

	mu    sync.RWMutex
	cache map[string]OEmbedInfo
}

// NewOEmbedClient creates an oEmbed client.
func NewOEmbedClient(client *http.Client) *OEmbedClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &OEmbedClient{client: client, cache: make(map[string]OEmbedInfo)}
}

// IsYouTubeURL reports whether the media reference points at YouTube.
func IsYouTubeURL(ref string) bool {
	u := strings.ToLower(ref)
	return strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be")
}

// Lookup fetches title and thumbnail for a YouTube URL, serving repeated
// lookups from cache.
func (c *OEmbedClient) Lookup(ctx context.Context, mediaRef string) (OEmbedInfo, error) {
	c.mu.RLock()
	cached, ok := c.cache[mediaRef]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("url", mediaRef)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL+"?"+params.Encode(), nil)
	if err != nil {
		return OEmbedInfo{}, &donation.TransientNetworkError{Op: "oembed", Err: err}
	}
	req.Header.Set("User-Agent", "donation-media-hub/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return OEmbedInfo{}, &donation.TransientNetworkError{Op: "oembed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OEmbedInfo{}, fmt.Errorf("oembed lookup returned status %d", resp.StatusCode)
	}

	var info OEmbedInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return OEmbedInfo{}, fmt.Errorf("failed to decode oembed response: %w", err)
	}

	c.mu.Lock()
	c.cache[mediaRef] = info
	c.mu.Unlock()
	return info, nil
}
