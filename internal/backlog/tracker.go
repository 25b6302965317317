package backlog

import (
	"context"
	"time"

	"github.com/statdeck/ladderd/internal/model"
)

// Source is the slice of the persistence gateway the tracker reads from.
type Source interface {
	ListEventScheduleEntries(ctx context.Context) ([]model.EventScheduleEntry, error)
	ListIngestedEventIDs(ctx context.Context) ([]model.SnapshotID, error)
}

// Tracker derives the set of events that are published but not yet
// ingested. The result is recomputed fresh on every call; caching it would
// reintroduce duplicate or missed fetches.
type Tracker struct {
	src Source
	now func() time.Time
}

func New(src Source) *Tracker {
	return &Tracker{src: src, now: time.Now}
}

// Compute returns the backlog: schedule entries whose window has already
// opened and that have no ingestion record, oldest first. Older entries
// come first so the most time-sensitive gaps are retried before newer ones.
func (t *Tracker) Compute(ctx context.Context) ([]model.EventScheduleEntry, error) {
	entries, err := t.src.ListEventScheduleEntries(ctx)
	if err != nil {
		return nil, err
	}
	ingestedIDs, err := t.src.ListIngestedEventIDs(ctx)
	if err != nil {
		return nil, err
	}

	ingested := make(map[model.SnapshotID]struct{}, len(ingestedIDs))
	for _, id := range ingestedIDs {
		ingested[id] = struct{}{}
	}

	now := t.now()
	var pending []model.EventScheduleEntry
	for _, e := range entries {
		if e.StartsAt.After(now) {
			continue
		}
		if _, ok := ingested[e.SnapshotID()]; ok {
			continue
		}
		pending = append(pending, e)
	}
	return pending, nil
}
