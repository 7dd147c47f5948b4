package lidarr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &Client{
		baseURL:    server.URL,
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     testLogger(),
	}
}

func TestSearchTerms(t *testing.T) {
	query := TrackQuery{
		Artist: "Black Sabbath",
		Title:  "Paranoid",
		Album:  "Paranoid",
		GUID:   "plex://track/5d07bbfd403c64029084a4a5",
	}

	terms := searchTerms(query)

	want := []string{
		"Black Sabbath Paranoid",
		"Paranoid",
		"Paranoid Black Sabbath",
		"5d07bbfd403c64029084a4a5",
	}
	if len(terms) != len(want) {
		t.Fatalf("Expected %d terms, got %d: %v", len(want), len(terms), terms)
	}
	for i, term := range want {
		if terms[i] != term {
			t.Errorf("Term %d: expected %q, got %q", i, term, terms[i])
		}
	}
}

func TestSearchTermsEmptyQuery(t *testing.T) {
	if terms := searchTerms(TrackQuery{}); len(terms) != 0 {
		t.Errorf("Expected no terms for empty query, got %v", terms)
	}
}

func TestScoreCandidate(t *testing.T) {
	query := TrackQuery{Artist: "Black Sabbath", Title: "Paranoid", Album: "Paranoid"}

	cases := []struct {
		name string
		hit  TrackResult
		want int
	}{
		{
			name: "full match with file",
			hit: TrackResult{
				Title:      "Paranoid",
				ArtistName: "Black Sabbath",
				Album:      AlbumRef{Title: "Paranoid"},
				HasFile:    true,
			},
			want: 7,
		},
		{
			name: "remaster suffix still matches via similarity",
			hit: TrackResult{
				Title:      "Paranoid (2009 Remaster)",
				ArtistName: "Black Sabbath",
				Album:      AlbumRef{Title: "Paranoid"},
			},
			want: 6,
		},
		{
			name: "unrelated track",
			hit: TrackResult{
				Title:      "Enter Sandman",
				ArtistName: "Metallica",
				Album:      AlbumRef{Title: "Metallica"},
			},
			want: 0,
		},
		{
			name: "file only is below the floor",
			hit: TrackResult{
				Title:      "Something Else",
				ArtistName: "Someone Else",
				HasFile:    true,
			},
			want: 1,
		},
	}

	for _, tc := range cases {
		if got := scoreCandidate(tc.hit, query); got != tc.want {
			t.Errorf("%s: score = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSelectCandidateExactMatchWins(t *testing.T) {
	query := TrackQuery{Artist: "Black Sabbath", Title: "Paranoid", Album: "Paranoid"}

	candidates := []TrackResult{
		{ID: 1, Title: "Paranoid (Live)", ArtistName: "Black Sabbath", Album: AlbumRef{Title: "Paranoid"}, HasFile: true},
		{ID: 2, Title: "Paranoid", ArtistName: "Black Sabbath", Album: AlbumRef{Title: "Paranoid"}},
	}

	best := selectCandidate(candidates, query)
	if best == nil {
		t.Fatal("Expected a candidate, got nil")
	}
	if best.ID != 2 {
		t.Errorf("Expected exact match ID 2, got %d", best.ID)
	}
}

func TestSelectCandidateTieBreaksOnLowestID(t *testing.T) {
	query := TrackQuery{Artist: "Black Sabbath", Title: "Paranoid", Album: "Paranoid"}

	// Identical candidates except for ID, listed out of order
	candidates := []TrackResult{
		{ID: 9, Title: "Paranoid", ArtistName: "Black Sabbath", Album: AlbumRef{Title: "Paranoid"}, HasFile: true},
		{ID: 3, Title: "Paranoid", ArtistName: "Black Sabbath", Album: AlbumRef{Title: "Paranoid"}, HasFile: true},
	}

	for i := 0; i < 10; i++ {
		best := selectCandidate(candidates, query)
		if best == nil || best.ID != 3 {
			t.Fatalf("Expected deterministic pick of ID 3, got %+v", best)
		}
	}
}

func TestSelectCandidateBelowFloor(t *testing.T) {
	query := TrackQuery{Artist: "Black Sabbath", Title: "Paranoid", Album: "Paranoid"}

	candidates := []TrackResult{
		{ID: 1, Title: "Enter Sandman", ArtistName: "Metallica", HasFile: true},
	}

	if best := selectCandidate(candidates, query); best != nil {
		t.Errorf("Expected nil below confidence floor, got %+v", best)
	}
}

func TestLookup(t *testing.T) {
	lookupCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/track/lookup" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("Missing API key header")
		}
		lookupCalls++

		results := []TrackResult{
			{ID: 7, Title: "Paranoid", ArtistName: "Black Sabbath", Album: AlbumRef{Title: "Paranoid"}, HasFile: true},
		}
		json.NewEncoder(w).Encode(results)
	})

	query := TrackQuery{Artist: "Black Sabbath", Title: "Paranoid", Album: "Paranoid"}
	match, err := client.Lookup(context.Background(), query)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if match == nil || match.ID != 7 {
		t.Fatalf("Expected match ID 7, got %+v", match)
	}
	if lookupCalls == 0 {
		t.Error("Expected at least one lookup request")
	}
}

func TestLookupNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]TrackResult{})
	})

	match, err := client.Lookup(context.Background(), TrackQuery{Artist: "A", Title: "B"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if match != nil {
		t.Errorf("Expected no match, got %+v", match)
	}
}

func TestLookupAllTermsFail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	match, err := client.Lookup(context.Background(), TrackQuery{Artist: "A", Title: "B"})
	if err == nil {
		t.Fatal("Expected error when every term fails, got nil")
	}
	if match != nil {
		t.Errorf("Expected nil match on error, got %+v", match)
	}
}

func TestDeleteTrack(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("deleteFiles")
		w.WriteHeader(http.StatusOK)
	})

	if err := client.DeleteTrack(context.Background(), 7); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}

	if gotMethod != http.MethodDelete {
		t.Errorf("Expected DELETE, got %s", gotMethod)
	}
	if gotPath != "/api/v1/track/7" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
	if gotQuery != "true" {
		t.Errorf("Expected deleteFiles=true, got %q", gotQuery)
	}
}

func TestDeleteTrackServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	if err := client.DeleteTrack(context.Background(), 7); err == nil {
		t.Fatal("Expected error on HTTP 404, got nil")
	}
}
