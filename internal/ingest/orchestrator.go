package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/statdeck/ladderd/internal/fetcher"
	"github.com/statdeck/ladderd/internal/model"
	"github.com/statdeck/ladderd/internal/notify"
)

// Fetcher is the slice of the ranking API client the orchestrator consumes.
type Fetcher interface {
	FetchPower(ctx context.Context, id model.SnapshotID, div model.Division, window time.Time) (model.Snapshot, error)
	FetchLeague(ctx context.Context, year int, month time.Month) (model.Snapshot, error)
	FetchEventSchedule(ctx context.Context) ([]model.EventScheduleEntry, error)
	FetchEvent(ctx context.Context, region, eventID string) (model.Snapshot, error)
	FetchRotation(ctx context.Context) (model.Rotation, error)
}

// Store is the slice of the persistence gateway the orchestrator consumes.
type Store interface {
	Persist(ctx context.Context, snap model.Snapshot) error
	HasIngestionRecord(ctx context.Context, id model.SnapshotID) (bool, error)
	SaveEventSchedule(ctx context.Context, entries []model.EventScheduleEntry) error
	SaveRotation(ctx context.Context, rot model.Rotation) error
}

// Backlog derives the not-yet-ingested event set.
type Backlog interface {
	Compute(ctx context.Context) ([]model.EventScheduleEntry, error)
}

// Orchestrator runs the scheduled ingestion jobs. Each job is an isolated
// failure domain: one job's error never prevents another job's next
// scheduled trigger.
type Orchestrator struct {
	fetcher  Fetcher
	store    Store
	backlog  Backlog
	notifier notify.Notifier
	drain    *Sequential

	eventsDisabled bool
	now            func() time.Time
}

func New(f Fetcher, s Store, b Backlog, n notify.Notifier, drainDelay time.Duration, eventsDisabled bool) *Orchestrator {
	return &Orchestrator{
		fetcher:        f,
		store:          s,
		backlog:        b,
		notifier:       n,
		drain:          NewSequential(drainDelay),
		eventsDisabled: eventsDisabled,
		now:            time.Now,
	}
}

// RunPeriodic ingests the latest power-ladder window for both divisions and
// refreshes the current rotation. The division fetches and the rotation
// fetch run concurrently as two independent families: the rotation's
// failure never blocks notification of successful rankings, and vice versa.
func (o *Orchestrator) RunPeriodic(ctx context.Context) {
	log := slog.With("job", "periodic", "run_id", uuid.NewString())
	now := o.now()
	window := model.PowerWindowStart(now)
	log.Info("periodic run starting", "window", window)

	var snaps [len(model.Divisions)]*model.Snapshot
	var rankings, rotation errgroup.Group

	for i, div := range model.Divisions {
		i, div := i, div
		rankings.Go(func() error {
			snap, err := o.ingestPower(ctx, log, now, div)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}

	rotation.Go(func() error {
		rot, err := o.fetcher.FetchRotation(ctx)
		if err != nil {
			return err
		}
		return o.store.SaveRotation(ctx, rot)
	})

	// Combined wait over both families; outcomes are reported per family.
	rankErr := rankings.Wait()
	rotErr := rotation.Wait()

	if rotErr != nil {
		log.Error("rotation refresh failed", "error", rotErr)
	}
	if rankErr != nil {
		log.Error("power ingestion failed", "error", rankErr)
		return
	}

	var batch []model.Snapshot
	for _, snap := range snaps {
		if snap != nil {
			batch = append(batch, *snap)
		}
	}
	if len(batch) == 0 {
		log.Info("periodic run complete", "ingested", 0)
		return
	}

	if err := o.notifier.Notify(ctx, batch); err != nil {
		// Side-effect failures never corrupt ingestion state.
		log.Error("notification failed", "error", err, "batch", len(batch))
	}
	log.Info("periodic run complete", "ingested", len(batch))
}

// ingestPower fetches and persists one division's window. A nil snapshot
// with nil error means the window was skipped (already ingested, or the
// remote has not published it yet).
func (o *Orchestrator) ingestPower(ctx context.Context, log *slog.Logger, now time.Time, div model.Division) (*model.Snapshot, error) {
	id := model.PowerID(now, div)

	ingested, err := o.store.HasIngestionRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if ingested {
		log.Info("window already ingested", "snapshot", id)
		return nil, nil
	}

	snap, err := o.fetcher.FetchPower(ctx, id, div, model.PowerWindowStart(now))
	if err != nil {
		if fetcher.IsExpected(err) {
			log.Info("window not yet available", "snapshot", id, "reason", err)
			return nil, nil
		}
		return nil, err
	}
	if err := o.store.Persist(ctx, snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RunDaily syncs the published tournament schedule, then drains the backlog
// of events that are published but not yet ingested. The drain runs even if
// the sync fails, off the previously persisted schedule. Each backlog item
// is fault-isolated: a failed item stays in the backlog and is retried by
// the next daily run — the backlog itself is the retry queue.
func (o *Orchestrator) RunDaily(ctx context.Context) {
	log := slog.With("job", "daily", "run_id", uuid.NewString())
	if o.eventsDisabled {
		log.Info("event ingestion disabled, skipping")
		return
	}
	log.Info("daily run starting")

	entries, err := o.fetcher.FetchEventSchedule(ctx)
	if err != nil {
		log.Error("schedule sync fetch failed", "error", err)
	} else if err := o.store.SaveEventSchedule(ctx, entries); err != nil {
		log.Error("schedule sync persist failed", "error", err)
	} else {
		log.Info("schedule synced", "events", len(entries))
	}

	pending, err := o.backlog.Compute(ctx)
	if err != nil {
		log.Error("backlog computation failed", "error", err)
		return
	}
	if len(pending) == 0 {
		log.Info("backlog empty")
		return
	}
	log.Info("draining backlog", "pending", len(pending))

	drained := 0
	errs := o.drain.Run(ctx, len(pending), func(ctx context.Context, i int) error {
		entry := pending[i]
		id := entry.SnapshotID()

		snap, err := o.fetcher.FetchEvent(ctx, entry.Region, entry.EventID)
		if err != nil {
			if fetcher.IsExpected(err) {
				log.Info("event not yet available", "snapshot", id, "reason", err)
			} else {
				log.Error("event fetch failed", "snapshot", id, "error", err)
			}
			return err
		}
		if err := o.store.Persist(ctx, snap); err != nil {
			log.Error("event persist failed", "snapshot", id, "error", err)
			return err
		}
		drained++
		return nil
	})

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	log.Info("daily run complete", "drained", drained, "failed", failed)
}

// RunMonthly ingests the previous calendar month's league standings. It
// runs on a daily cadence because the remote publishes this ranking kind on
// an irregular calendar; once the month is ingested the daily attempts
// become no-ops.
func (o *Orchestrator) RunMonthly(ctx context.Context) {
	log := slog.With("job", "monthly", "run_id", uuid.NewString())
	year, month := model.PreviousLeague(o.now())
	id := model.LeagueID(year, month)

	ingested, err := o.store.HasIngestionRecord(ctx, id)
	if err != nil {
		log.Error("league record lookup failed", "snapshot", id, "error", err)
		return
	}
	if ingested {
		log.Debug("league month already ingested", "snapshot", id)
		return
	}

	snap, err := o.fetcher.FetchLeague(ctx, year, month)
	if err != nil {
		if fetcher.IsExpected(err) {
			log.Info("league month not yet published", "snapshot", id, "reason", err)
		} else {
			log.Error("league fetch failed", "snapshot", id, "error", err)
		}
		return
	}
	if err := o.store.Persist(ctx, snap); err != nil {
		log.Error("league persist failed", "snapshot", id, "error", err)
		return
	}
	log.Info("league month ingested", "snapshot", id, "players", len(snap.Entries))
}
