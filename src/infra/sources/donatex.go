package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

const (
	DonateXID = "donatex"

	defaultDXAPIURL = "https://api.donatex.gg/external/donations"

	userAgent = "donation-media-hub/1.0"

	// timestampMarkerLayout is a fixed-width UTC form so markers compare
	// lexicographically in chronological order.
	timestampMarkerLayout = "2006-01-02T15:04:05.000Z"
)

// DonateX polls the DonateX external donations API. Authentication is a
// token header; the marker is the donation's creation timestamp. Titles are
// left empty and resolved lazily through oEmbed by the download pipeline.
type DonateX struct {
	token   TokenFunc
	client  *http.Client
	baseURL string
}

// NewDonateX creates the DonateX source adapter.
func NewDonateX(token TokenFunc, client *http.Client) *DonateX {
	if client == nil {
		client = http.DefaultClient
	}
	return &DonateX{token: token, client: client, baseURL: defaultDXAPIURL}
}

// ID returns the stable source identifier.
func (s *DonateX) ID() string { return DonateXID }

type dxDonation struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	MusicLink string  `json:"musicLink"`
	Username  string  `json:"username"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

type dxResponse struct {
	Donations []dxDonation `json:"donations"`
}

// Poll fetches recent donations and returns events carrying a music link,
// in ascending marker order.
func (s *DonateX) Poll(ctx context.Context) ([]donation.DonationEvent, error) {
	token := s.token()
	if token == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?skip=0&take=20&hideTest=true&withAi=true", nil)
	if err != nil {
		return nil, &donation.TransientNetworkError{Op: "donatex poll", Err: err}
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-external-token", token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &donation.TransientNetworkError{Op: "donatex poll", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &donation.AuthError{SourceID: DonateXID, Err: fmt.Errorf("external token rejected with status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &donation.TransientNetworkError{Op: "donatex poll", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var parsed dxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &donation.TransientNetworkError{Op: "donatex poll", Err: err}
	}

	var events []donation.DonationEvent
	for _, d := range parsed.Donations {
		if d.Timestamp == "" || d.MusicLink == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, d.Timestamp)
		if err != nil {
			continue
		}

		externalID := d.ID
		if externalID == "" {
			externalID = d.Timestamp
		}

		events = append(events, donation.DonationEvent{
			SourceID:   DonateXID,
			ExternalID: externalID,
			Marker:     TimestampMarker(ts),
			MediaRef:   d.MusicLink,
			DonatedBy:  d.Username,
			Amount:     d.Amount,
			Currency:   d.Currency,
			ReceivedAt: ts,
		})
	}

	sort.Slice(events, func(i, j int) bool { return events[j].Marker.After(events[i].Marker) })
	return events, nil
}

// TimestampMarker encodes a donation time as a fixed-width UTC marker.
func TimestampMarker(t time.Time) donation.Marker {
	return donation.Marker(t.UTC().Format(timestampMarkerLayout))
}
