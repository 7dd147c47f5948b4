package models

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T, path string) *Database {
	t.Helper()
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func TestVerdictLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db := openTestDB(t, path)

	written := []*VerdictRecord{
		{TrackID: "100", Verdict: VerdictDislike, Title: "Bad Song", Artist: "Artist A", RawRating: "2"},
		{TrackID: "101", Verdict: VerdictLike, Title: "Good Song", Artist: "Artist B", RawRating: "10"},
		{TrackID: "102", Verdict: VerdictDislike, Title: "Worse Song", Artist: "Artist C", RawRating: "1"},
		{TrackID: "103", Verdict: VerdictDislike, Title: "Awful Song", Artist: "Artist D", RawRating: "2"},
	}
	for _, record := range written {
		record.Timestamp = time.Now()
		if err := db.AppendVerdict(record); err != nil {
			t.Fatalf("AppendVerdict failed: %v", err)
		}
	}

	// Simulate a restart
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	db = openTestDB(t, path)
	defer db.Close()

	disliked, err := db.GetVerdicts(VerdictDislike)
	if err != nil {
		t.Fatalf("GetVerdicts failed: %v", err)
	}
	if len(disliked) != 3 {
		t.Fatalf("Expected 3 disliked records, got %d", len(disliked))
	}

	// Write order survives the restart
	wantOrder := []string{"100", "102", "103"}
	for i, record := range disliked {
		if record.TrackID != wantOrder[i] {
			t.Errorf("Position %d: expected track %s, got %s", i, wantOrder[i], record.TrackID)
		}
	}

	liked, err := db.GetVerdicts(VerdictLike)
	if err != nil {
		t.Fatalf("GetVerdicts failed: %v", err)
	}
	if len(liked) != 1 || liked[0].TrackID != "101" {
		t.Errorf("Liked ledger mismatch: %+v", liked)
	}
}

func TestAppendVerdictRejectsNone(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "test.db"))
	defer db.Close()

	record := &VerdictRecord{TrackID: "100", Verdict: VerdictNone}
	if err := db.AppendVerdict(record); err == nil {
		t.Fatal("Expected error persisting an empty verdict, got nil")
	}
}

func TestDeletionFailureRoundTrip(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "test.db"))
	defer db.Close()

	failure := &DeletionFailure{
		TrackID:   "100",
		Title:     "Bad Song",
		Artist:    "Artist A",
		Reason:    FailureNoMatch,
		Detail:    "no confident match in library",
		Timestamp: time.Now(),
	}
	if err := db.AppendDeletionFailure(failure); err != nil {
		t.Fatalf("AppendDeletionFailure failed: %v", err)
	}

	failures, err := db.GetDeletionFailures()
	if err != nil {
		t.Fatalf("GetDeletionFailures failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(failures))
	}
	if failures[0].Reason != FailureNoMatch {
		t.Errorf("Reason mismatch: %q", failures[0].Reason)
	}
}

func TestNowPlayingRecentAndTrim(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "test.db"))
	defer db.Close()

	for i := 0; i < 15; i++ {
		entry := &NowPlayingEntry{
			SessionKey: fmt.Sprintf("s%d", i),
			TrackID:    fmt.Sprintf("%d", 1000+i),
			Title:      fmt.Sprintf("Track %d", i),
			ObservedAt: time.Now(),
		}
		if err := db.AppendNowPlaying(entry); err != nil {
			t.Fatalf("AppendNowPlaying failed: %v", err)
		}
	}

	recent, err := db.GetRecentNowPlaying(10)
	if err != nil {
		t.Fatalf("GetRecentNowPlaying failed: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("Expected 10 recent entries, got %d", len(recent))
	}
	// Newest first
	if recent[0].SessionKey != "s14" {
		t.Errorf("Expected newest entry s14 first, got %s", recent[0].SessionKey)
	}
	if recent[9].SessionKey != "s5" {
		t.Errorf("Expected s5 last, got %s", recent[9].SessionKey)
	}

	trimmed, err := db.TrimNowPlaying(5)
	if err != nil {
		t.Fatalf("TrimNowPlaying failed: %v", err)
	}
	if trimmed != 10 {
		t.Errorf("Expected 10 trimmed, got %d", trimmed)
	}

	remaining, err := db.GetRecentNowPlaying(100)
	if err != nil {
		t.Fatalf("GetRecentNowPlaying failed: %v", err)
	}
	if len(remaining) != 5 {
		t.Fatalf("Expected 5 remaining, got %d", len(remaining))
	}
	// The newest entries survive
	if remaining[0].SessionKey != "s14" || remaining[4].SessionKey != "s10" {
		t.Errorf("Trim kept the wrong entries: first=%s last=%s", remaining[0].SessionKey, remaining[4].SessionKey)
	}

	// Trimming again is a no-op
	trimmed, err = db.TrimNowPlaying(5)
	if err != nil {
		t.Fatalf("TrimNowPlaying failed: %v", err)
	}
	if trimmed != 0 {
		t.Errorf("Expected no-op trim, got %d", trimmed)
	}
}
