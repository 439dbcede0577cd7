package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

func openStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadEmptyDatabase(t *testing.T) {
	store := openStore(t)

	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil state from empty database, got %+v", state)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openStore(t)

	saved := &donation.PersistedState{
		Tracks: []donation.TrackRecord{
			{
				ID:         "t1",
				SourceID:   "donationalerts",
				ExternalID: "100",
				Title:      "First Song",
				MediaRef:   "https://youtu.be/abc",
				DonatedBy:  "alice",
				Amount:     5.5,
				Currency:   "EUR",
				LocalPath:  "/media/t1.mp3",
				Status:     donation.StatusReady,
				EnqueuedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			},
			{
				ID:         "t2",
				SourceID:   "donatex",
				ExternalID: "2026-08-30T12:01:00.000Z",
				Title:      "Second Song",
				MediaRef:   "https://youtu.be/def",
				Status:     donation.StatusPending,
				EnqueuedAt: time.Date(2026, 8, 30, 12, 1, 0, 0, time.UTC),
				Error:      "retrying",
			},
		},
		CurrentIndex: 1,
		Markers: map[string]donation.Marker{
			"donationalerts": donation.Marker("00000000000000000100"),
		},
		Credentials: map[string]string{
			"donationalerts": "secret-token",
		},
		SavedAt: time.Date(2026, 8, 30, 12, 2, 0, 0, time.UTC),
	}

	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected state, got nil")
	}

	if loaded.CurrentIndex != 1 {
		t.Errorf("expected current index 1, got %d", loaded.CurrentIndex)
	}
	if len(loaded.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(loaded.Tracks))
	}
	first := loaded.Tracks[0]
	if first.ID != "t1" || first.Title != "First Song" || first.LocalPath != "/media/t1.mp3" {
		t.Errorf("first track mismatch: %+v", first)
	}
	if first.Status != donation.StatusReady {
		t.Errorf("expected status ready, got %s", first.Status)
	}
	if !first.EnqueuedAt.Equal(saved.Tracks[0].EnqueuedAt) {
		t.Errorf("expected enqueued_at %v, got %v", saved.Tracks[0].EnqueuedAt, first.EnqueuedAt)
	}
	second := loaded.Tracks[1]
	if second.Error != "retrying" || second.Status != donation.StatusPending {
		t.Errorf("second track mismatch: %+v", second)
	}
	if second.Position != 1 {
		t.Errorf("expected position 1, got %d", second.Position)
	}

	if got := loaded.Markers["donationalerts"]; got != donation.Marker("00000000000000000100") {
		t.Errorf("marker mismatch: %q", got)
	}
	if got := loaded.Credentials["donationalerts"]; got != "secret-token" {
		t.Errorf("credentials mismatch: %q", got)
	}
	if !loaded.SavedAt.Equal(saved.SavedAt) {
		t.Errorf("expected saved_at %v, got %v", saved.SavedAt, loaded.SavedAt)
	}
}

func TestSaveReplacesPreviousState(t *testing.T) {
	store := openStore(t)

	first := &donation.PersistedState{
		Tracks: []donation.TrackRecord{
			{ID: "old", SourceID: "manual", ExternalID: "1", Title: "Old", MediaRef: "ref", Status: donation.StatusPlayed, EnqueuedAt: time.Now().UTC()},
		},
		Markers:     map[string]donation.Marker{"donatex": "2026-01-01T00:00:00.000Z"},
		Credentials: map[string]string{"donatex": "old-token"},
		SavedAt:     time.Now().UTC(),
	}
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := &donation.PersistedState{
		Tracks: []donation.TrackRecord{
			{ID: "new", SourceID: "manual", ExternalID: "2", Title: "New", MediaRef: "ref", Status: donation.StatusPending, EnqueuedAt: time.Now().UTC()},
		},
		CurrentIndex: 0,
		Markers:      map[string]donation.Marker{},
		Credentials:  map[string]string{},
		SavedAt:      time.Now().UTC(),
	}
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tracks) != 1 || loaded.Tracks[0].ID != "new" {
		t.Fatalf("expected replaced state with one track 'new', got %+v", loaded.Tracks)
	}
	if len(loaded.Markers) != 0 {
		t.Errorf("expected markers cleared, got %v", loaded.Markers)
	}
	if len(loaded.Credentials) != 0 {
		t.Errorf("expected credentials cleared, got %v", loaded.Credentials)
	}
}
