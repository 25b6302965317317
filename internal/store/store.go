package store

import (
	"context"
	"fmt"

	"github.com/statdeck/ladderd/internal/model"
)

// Store is the persistence gateway for snapshots, schedule entries, and the
// report queries served over HTTP.
type Store interface {
	// Migrate runs database migrations.
	Migrate(ctx context.Context) error

	// Persist stores a snapshot's ranking rows and writes its ingestion
	// record in one transaction. Persisting an already-recorded snapshot
	// is a no-op.
	Persist(ctx context.Context, snap model.Snapshot) error

	// HasIngestionRecord reports whether a snapshot has been ingested.
	HasIngestionRecord(ctx context.Context, id model.SnapshotID) (bool, error)

	// SaveEventSchedule upserts the published tournament schedule.
	SaveEventSchedule(ctx context.Context, entries []model.EventScheduleEntry) error

	// ListEventScheduleEntries returns all known schedule entries in
	// chronological order, oldest first.
	ListEventScheduleEntries(ctx context.Context) ([]model.EventScheduleEntry, error)

	// ListIngestedEventIDs returns the snapshot ids of every ingested
	// event snapshot.
	ListIngestedEventIDs(ctx context.Context) ([]model.SnapshotID, error)

	// SaveRotation upserts the current mode/stage rotation.
	SaveRotation(ctx context.Context, rot model.Rotation) error

	// LatestLeagueID returns the snapshot id of the most recently
	// ingested league month, or "" if none exists.
	LatestLeagueID(ctx context.Context) (model.SnapshotID, error)

	// RatingDistribution buckets the ratings of one snapshot.
	RatingDistribution(ctx context.Context, id model.SnapshotID) ([]DistributionBucket, error)

	// TopPlayers returns the best-rated players of the latest power
	// window across both divisions.
	TopPlayers(ctx context.Context, limit int) ([]TopPlayer, error)

	// EventParticipation returns per-event entry counts.
	EventParticipation(ctx context.Context) ([]EventParticipation, error)
}

// DistributionBucket is one bar of a rating histogram.
type DistributionBucket struct {
	Floor float64 `json:"floor"`
	Count int     `json:"count"`
}

// TopPlayer is one row of the top-players report.
type TopPlayer struct {
	PlayerID   string         `json:"player_id"`
	PlayerName string         `json:"player_name"`
	Rating     float64        `json:"rating"`
	Division   model.Division `json:"division"`
}

// EventParticipation is one row of the events report.
type EventParticipation struct {
	Region  string `json:"region"`
	EventID string `json:"event_id"`
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// StorageError marks a persistence failure. Storage failures are always
// unexpected and abort the current item or run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
