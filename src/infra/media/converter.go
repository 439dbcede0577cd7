package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/gosimple/unidecode"
)

const maxFilenameLen = 120

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\n\r\t]+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// URLFunc supplies the conversion endpoint on every download, so config
// reloads take effect without rebuilding the converter.
type URLFunc func() string

// StaticURL wraps a fixed endpoint as a URLFunc.
func StaticURL(u string) URLFunc {
	return func() string { return u }
}

// Converter downloads a media reference as an audio file through the
// external conversion API. One GET with the media URL as a query parameter;
// the response body is the audio stream.
type Converter struct {
	convertURL URLFunc
	mediaDir   string
	client     *http.Client
}

// NewConverter creates a converter client writing into mediaDir.
func NewConverter(convertURL URLFunc, mediaDir string, client *http.Client) *Converter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Converter{convertURL: convertURL, mediaDir: mediaDir, client: client}
}

// Download fetches the audio for mediaRef and writes it into the media
// directory under a sanitized name derived from title. Returns the path of
// the written file.
func (c *Converter) Download(ctx context.Context, mediaRef, title string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.convertURL()+"?url="+url.QueryEscape(mediaRef), nil)
	if err != nil {
		return "", &donation.TransientNetworkError{Op: "convert", Err: err}
	}
	req.Header.Set("User-Agent", "donation-media-hub/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &donation.TransientNetworkError{Op: "convert", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &donation.TransientNetworkError{Op: "convert", Err: fmt.Errorf("conversion API returned status %d", resp.StatusCode)}
	}

	path := c.targetPath(title, extensionFor(resp.Header.Get("Content-Type"), mediaRef))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		os.Remove(path)
		return "", &donation.TransientNetworkError{Op: "convert", Err: err}
	}
	if written == 0 {
		os.Remove(path)
		return "", fmt.Errorf("conversion API returned an empty body")
	}

	slog.Debug("Audio downloaded", "path", path, "bytes", written)
	return path, nil
}

// targetPath builds a collision-free path in the media directory.
func (c *Converter) targetPath(title, ext string) string {
	safe := SanitizeFilename(title)
	path := filepath.Join(c.mediaDir, safe+ext)
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(c.mediaDir, fmt.Sprintf("%s__%d%s", safe, time.Now().Unix(), ext))
	}
	return path
}

// extensionFor maps the response content type to a file extension. Direct
// flac donations pass through untranscoded; everything else is mp3.
func extensionFor(contentType, mediaRef string) string {
	switch {
	case strings.Contains(contentType, "flac"):
		return ".flac"
	case strings.HasSuffix(strings.ToLower(mediaRef), ".flac"):
		return ".flac"
	default:
		return ".mp3"
	}
}

// SanitizeFilename strips path-hostile characters, transliterates to ASCII
// and bounds the length. Empty input falls back to "track".
func SanitizeFilename(name string) string {
	name = unidecode.Unidecode(strings.TrimSpace(name))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = spaceRuns.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if len(name) > maxFilenameLen {
		name = strings.TrimRight(name[:maxFilenameLen], " ")
	}
	if name == "" {
		return "track"
	}
	return name
}
