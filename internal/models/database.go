package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding the verdict ledgers, the
// deletion failure log and the now-playing history. Each append is one
// bbolt transaction, so a crash never leaves a half-written record.
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Verdict ledger operations

// AppendVerdict appends a verdict record to the liked or disliked ledger
func (db *Database) AppendVerdict(record *VerdictRecord) error {
	if record.Verdict != VerdictLike && record.Verdict != VerdictDislike {
		return fmt.Errorf("refusing to persist verdict %q", record.Verdict)
	}
	record.Timestamp = record.Timestamp.UTC()
	return db.store.Insert(bolthold.NextSequence(), record)
}

// GetVerdicts retrieves all ledger entries for one verdict, in the order
// they were written
func (db *Database) GetVerdicts(verdict Verdict) ([]*VerdictRecord, error) {
	var records []*VerdictRecord
	err := db.store.Find(&records, bolthold.Where("Verdict").Eq(verdict).Index("Verdict").SortBy("ID"))
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetVerdictsByTrackID retrieves all ledger entries for one track
func (db *Database) GetVerdictsByTrackID(trackID string) ([]*VerdictRecord, error) {
	var records []*VerdictRecord
	err := db.store.Find(&records, bolthold.Where("TrackID").Eq(trackID).Index("TrackID"))
	return records, err
}

// Deletion failure operations

// AppendDeletionFailure records a purge that could not be completed
func (db *Database) AppendDeletionFailure(failure *DeletionFailure) error {
	failure.Timestamp = failure.Timestamp.UTC()
	return db.store.Insert(bolthold.NextSequence(), failure)
}

// GetDeletionFailures retrieves all recorded deletion failures
func (db *Database) GetDeletionFailures() ([]*DeletionFailure, error) {
	var failures []*DeletionFailure
	err := db.store.Find(&failures, nil)
	if err != nil {
		return nil, err
	}
	return failures, nil
}

// Now-playing history operations

// AppendNowPlaying persists one observed playback snapshot
func (db *Database) AppendNowPlaying(entry *NowPlayingEntry) error {
	entry.ObservedAt = entry.ObservedAt.UTC()
	return db.store.Insert(bolthold.NextSequence(), entry)
}

// GetRecentNowPlaying retrieves the most recent history entries, newest first
func (db *Database) GetRecentNowPlaying(limit int) ([]*NowPlayingEntry, error) {
	var entries []*NowPlayingEntry
	err := db.store.Find(&entries, (&bolthold.Query{}).SortBy("ID").Reverse().Limit(limit))
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// TrimNowPlaying deletes all but the most recent keep entries
func (db *Database) TrimNowPlaying(keep int) (int, error) {
	var entries []*NowPlayingEntry
	err := db.store.Find(&entries, (&bolthold.Query{}).SortBy("ID").Reverse())
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	trimmed := 0
	for _, entry := range entries[keep:] {
		if err := db.store.Delete(entry.ID, &NowPlayingEntry{}); err != nil {
			return trimmed, err
		}
		trimmed++
	}
	return trimmed, nil
}
