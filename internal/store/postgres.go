package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/statdeck/ladderd/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ingestion_records (
			snapshot_id  TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			ingested_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS rankings (
			snapshot_id  TEXT NOT NULL REFERENCES ingestion_records (snapshot_id),
			position     INT NOT NULL,
			player_id    TEXT NOT NULL,
			player_name  TEXT NOT NULL,
			rating       DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (snapshot_id, position)
		);
		CREATE TABLE IF NOT EXISTS event_schedule (
			region     TEXT NOT NULL,
			event_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			starts_at  TIMESTAMPTZ NOT NULL,
			ends_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (region, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_event_schedule_starts_at ON event_schedule (starts_at);
		CREATE TABLE IF NOT EXISTS rotations (
			started_at  TIMESTAMPTZ PRIMARY KEY,
			mode        TEXT NOT NULL,
			stages      TEXT[] NOT NULL
		);
	`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	return nil
}

func (p *Postgres) Persist(ctx context.Context, snap model.Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	// The ingestion record is append-only per id. If it already exists
	// the whole persist is an idempotent no-op.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ingestion_records (snapshot_id, kind, ingested_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (snapshot_id) DO NOTHING`,
		string(snap.ID), string(snap.Kind), snap.FetchedAt,
	)
	if err != nil {
		return &StorageError{Op: "insert record", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for _, e := range snap.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rankings (snapshot_id, position, player_id, player_name, rating)
			 VALUES ($1, $2, $3, $4, $5)`,
			string(snap.ID), e.Position, e.PlayerID, e.PlayerName, e.Rating,
		); err != nil {
			return &StorageError{Op: "insert ranking", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (p *Postgres) HasIngestionRecord(ctx context.Context, id model.SnapshotID) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM ingestion_records WHERE snapshot_id = $1)",
		string(id),
	).Scan(&exists)
	if err != nil {
		return false, &StorageError{Op: "has record", Err: err}
	}
	return exists, nil
}

func (p *Postgres) SaveEventSchedule(ctx context.Context, entries []model.EventScheduleEntry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_schedule (region, event_id, name, starts_at, ends_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (region, event_id) DO UPDATE
			 SET name = EXCLUDED.name, starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at`,
			e.Region, e.EventID, e.Name, e.StartsAt, e.EndsAt,
		); err != nil {
			return &StorageError{Op: "upsert schedule", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (p *Postgres) ListEventScheduleEntries(ctx context.Context) ([]model.EventScheduleEntry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT region, event_id, name, starts_at, ends_at
		 FROM event_schedule ORDER BY starts_at, region, event_id`,
	)
	if err != nil {
		return nil, &StorageError{Op: "list schedule", Err: err}
	}
	defer rows.Close()

	var entries []model.EventScheduleEntry
	for rows.Next() {
		var e model.EventScheduleEntry
		if err := rows.Scan(&e.Region, &e.EventID, &e.Name, &e.StartsAt, &e.EndsAt); err != nil {
			return nil, &StorageError{Op: "scan schedule", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list schedule", Err: err}
	}
	return entries, nil
}

func (p *Postgres) ListIngestedEventIDs(ctx context.Context) ([]model.SnapshotID, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT snapshot_id FROM ingestion_records WHERE kind = $1",
		string(model.KindEvent),
	)
	if err != nil {
		return nil, &StorageError{Op: "list ingested events", Err: err}
	}
	defer rows.Close()

	var ids []model.SnapshotID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: "scan ingested events", Err: err}
		}
		ids = append(ids, model.SnapshotID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list ingested events", Err: err}
	}
	return ids, nil
}

func (p *Postgres) SaveRotation(ctx context.Context, rot model.Rotation) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rotations (started_at, mode, stages)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (started_at) DO UPDATE SET mode = EXCLUDED.mode, stages = EXCLUDED.stages`,
		rot.StartedAt, rot.Mode, pq.Array(rot.Stages),
	)
	if err != nil {
		return &StorageError{Op: "save rotation", Err: err}
	}
	return nil
}

func (p *Postgres) LatestLeagueID(ctx context.Context) (model.SnapshotID, error) {
	var id string
	err := p.db.QueryRowContext(ctx,
		`SELECT snapshot_id FROM ingestion_records
		 WHERE kind = $1 ORDER BY snapshot_id DESC LIMIT 1`,
		string(model.KindLeague),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", &StorageError{Op: "latest league", Err: err}
	}
	return model.SnapshotID(id), nil
}

func (p *Postgres) RatingDistribution(ctx context.Context, id model.SnapshotID) ([]DistributionBucket, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT floor(rating / 100) * 100 AS bucket, count(*)
		 FROM rankings WHERE snapshot_id = $1
		 GROUP BY bucket ORDER BY bucket`,
		string(id),
	)
	if err != nil {
		return nil, &StorageError{Op: "distribution", Err: err}
	}
	defer rows.Close()

	var buckets []DistributionBucket
	for rows.Next() {
		var b DistributionBucket
		if err := rows.Scan(&b.Floor, &b.Count); err != nil {
			return nil, &StorageError{Op: "scan distribution", Err: err}
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "distribution", Err: err}
	}
	return buckets, nil
}

func (p *Postgres) TopPlayers(ctx context.Context, limit int) ([]TopPlayer, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT r.player_id, r.player_name, r.rating, split_part(r.snapshot_id, ':', 2) AS division
		 FROM rankings r
		 JOIN (
			SELECT max(snapshot_id) AS snapshot_id, split_part(snapshot_id, ':', 2) AS division
			FROM ingestion_records WHERE kind = $1 GROUP BY division
		 ) latest ON r.snapshot_id = latest.snapshot_id
		 ORDER BY r.rating DESC LIMIT $2`,
		string(model.KindPower), limit,
	)
	if err != nil {
		return nil, &StorageError{Op: "top players", Err: err}
	}
	defer rows.Close()

	var players []TopPlayer
	for rows.Next() {
		var tp TopPlayer
		var div string
		if err := rows.Scan(&tp.PlayerID, &tp.PlayerName, &tp.Rating, &div); err != nil {
			return nil, &StorageError{Op: "scan top players", Err: err}
		}
		tp.Division = model.Division(div)
		players = append(players, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "top players", Err: err}
	}
	return players, nil
}

func (p *Postgres) EventParticipation(ctx context.Context) ([]EventParticipation, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT s.region, s.event_id, s.name, count(r.player_id)
		 FROM event_schedule s
		 LEFT JOIN rankings r ON r.snapshot_id = 'event:' || s.region || ':' || s.event_id
		 GROUP BY s.region, s.event_id, s.name
		 ORDER BY count(r.player_id) DESC`,
	)
	if err != nil {
		return nil, &StorageError{Op: "event participation", Err: err}
	}
	defer rows.Close()

	var out []EventParticipation
	for rows.Next() {
		var ep EventParticipation
		if err := rows.Scan(&ep.Region, &ep.EventID, &ep.Name, &ep.Entries); err != nil {
			return nil, &StorageError{Op: "scan event participation", Err: err}
		}
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "event participation", Err: err}
	}
	return out, nil
}
