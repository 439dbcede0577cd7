package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

const (
	DonationAlertsID = "donationalerts"

	defaultDAMediaURL = "https://www.donationalerts.com/api/getmediadata"
	daFetchLimit      = 20
	daDateLayout      = "2006-01-02 15:04:05"
)

// jsonpPattern extracts the JSON payload from a JSONP response body.
var jsonpPattern = regexp.MustCompile(`(?s)\((\{.*\})\)\s*$`)

// TokenFunc supplies a source's current credential on every poll, so token
// updates apply without restarting the poller. An empty return disables the
// source.
type TokenFunc func() string

// DonationAlerts polls the DonationAlerts media widget endpoint. The
// endpoint answers JSONP; the padding is stripped before parsing. Only
// youtube media entries are emitted; the marker is the numeric media id.
type DonationAlerts struct {
	token   TokenFunc
	client  *http.Client
	baseURL string
}

// NewDonationAlerts creates the DonationAlerts source adapter.
func NewDonationAlerts(token TokenFunc, client *http.Client) *DonationAlerts {
	if client == nil {
		client = http.DefaultClient
	}
	return &DonationAlerts{token: token, client: client, baseURL: defaultDAMediaURL}
}

// ID returns the stable source identifier.
func (s *DonationAlerts) ID() string { return DonationAlertsID }

type daMediaEntry struct {
	MediaID        json.Number `json:"media_id"`
	SubType        string      `json:"sub_type"`
	Title          string      `json:"title"`
	AdditionalData string      `json:"additional_data"`
	DateCreated    string      `json:"date_created"`
	Username       string      `json:"username"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
}

type daMediaResponse struct {
	Media []daMediaEntry `json:"media"`
}

// Poll fetches the pending media list and returns donation events in
// ascending marker order. Marker filtering against the persisted cursor is
// the caller's responsibility.
func (s *DonationAlerts) Poll(ctx context.Context) ([]donation.DonationEvent, error) {
	token := s.token()
	if token == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("token", token)
	params.Set("limit", strconv.Itoa(daFetchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &donation.TransientNetworkError{Op: "donationalerts poll", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &donation.TransientNetworkError{Op: "donationalerts poll", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &donation.AuthError{SourceID: DonationAlertsID, Err: fmt.Errorf("widget token rejected with status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &donation.TransientNetworkError{Op: "donationalerts poll", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &donation.TransientNetworkError{Op: "donationalerts poll", Err: err}
	}

	payload := stripJSONP(body)
	if payload == nil {
		return nil, &donation.TransientNetworkError{Op: "donationalerts poll", Err: fmt.Errorf("response is not JSONP")}
	}

	var parsed daMediaResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &donation.TransientNetworkError{Op: "donationalerts poll", Err: err}
	}

	var events []donation.DonationEvent
	for _, media := range parsed.Media {
		mediaID, err := media.MediaID.Int64()
		if err != nil || mediaID <= 0 {
			continue
		}
		if media.SubType != "youtube" {
			continue
		}

		var extra struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		}
		if media.AdditionalData != "" {
			// additional_data is a JSON string inside the JSON envelope
			if err := json.Unmarshal([]byte(media.AdditionalData), &extra); err != nil {
				continue
			}
		}
		if extra.URL == "" {
			continue
		}

		title := media.Title
		if title == "" {
			title = extra.Title
		}
		if title == "" {
			title = "YouTube"
		}

		receivedAt := time.Now()
		if media.DateCreated != "" {
			if parsed, err := time.ParseInLocation(daDateLayout, media.DateCreated, time.UTC); err == nil {
				receivedAt = parsed
			}
		}

		events = append(events, donation.DonationEvent{
			SourceID:   DonationAlertsID,
			ExternalID: strconv.FormatInt(mediaID, 10),
			Marker:     MediaIDMarker(mediaID),
			MediaRef:   extra.URL,
			Title:      title,
			DonatedBy:  media.Username,
			Amount:     media.Amount,
			Currency:   media.Currency,
			ReceivedAt: receivedAt,
		})
	}

	sort.Slice(events, func(i, j int) bool { return events[j].Marker.After(events[i].Marker) })
	return events, nil
}

// MediaIDMarker encodes a numeric media id as a zero-padded marker so that
// lexicographic comparison matches numeric order.
func MediaIDMarker(mediaID int64) donation.Marker {
	return donation.Marker(fmt.Sprintf("%020d", mediaID))
}

func stripJSONP(body []byte) []byte {
	m := jsonpPattern.FindSubmatch(body)
	if m == nil {
		return nil
	}
	return m[1]
}
