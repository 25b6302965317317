package model

import (
	"fmt"
	"time"
)

// Kind identifies which family of ranking data a snapshot belongs to.
type Kind string

const (
	KindPower  Kind = "power"  // 2-hourly power ladder window
	KindLeague Kind = "league" // monthly league standings
	KindEvent  Kind = "event"  // regional tournament
)

// Division is one of the two partitions the remote service splits the
// power ladder into.
type Division string

const (
	DivisionAlpha Division = "alpha"
	DivisionBravo Division = "bravo"
)

// Divisions lists both power-ladder divisions in a fixed order.
var Divisions = [2]Division{DivisionAlpha, DivisionBravo}

// SnapshotID is the opaque key identifying one fetchable unit of ranking
// data. Identifiers are stable strings so they can double as primary keys.
type SnapshotID string

// powerWindow is the length of one power-ladder window. The remote service
// publishes the window ending two hours ago, so identifiers are always
// derived from now minus this offset, never from now directly.
const powerWindow = 2 * time.Hour

// PowerWindowStart returns the UTC start of the most recently published
// power-ladder window relative to now.
func PowerWindowStart(now time.Time) time.Time {
	return now.UTC().Add(-powerWindow).Truncate(powerWindow)
}

// PowerID derives the periodic snapshot identifier for a division at the
// given wall-clock time.
func PowerID(now time.Time, div Division) SnapshotID {
	start := PowerWindowStart(now)
	return SnapshotID(fmt.Sprintf("power:%s:%s", div, start.Format(time.RFC3339)))
}

// LeagueID derives the calendar snapshot identifier for a year and month.
func LeagueID(year int, month time.Month) SnapshotID {
	return SnapshotID(fmt.Sprintf("league:%04d-%02d", year, int(month)))
}

// PreviousLeague returns the year and month of the calendar month before now.
func PreviousLeague(now time.Time) (int, time.Month) {
	now = now.UTC()
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// EventID derives the event snapshot identifier for a region and event.
func EventID(region string, event string) SnapshotID {
	return SnapshotID(fmt.Sprintf("event:%s:%s", region, event))
}

// RankingEntry is one row of a fetched leaderboard.
type RankingEntry struct {
	Position   int     `json:"position"`
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Rating     float64 `json:"rating"`
}

// Snapshot is one fetched unit of ranking data, ready to persist.
type Snapshot struct {
	ID        SnapshotID     `json:"id"`
	Kind      Kind           `json:"kind"`
	Division  Division       `json:"division,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
	Entries   []RankingEntry `json:"entries"`
}

// EventScheduleEntry is one tournament published by the remote service,
// independent of whether it has been ingested yet.
type EventScheduleEntry struct {
	Region   string    `json:"region"`
	EventID  string    `json:"event_id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// SnapshotID returns the ingestion identifier for this schedule entry.
func (e EventScheduleEntry) SnapshotID() SnapshotID {
	return EventID(e.Region, e.EventID)
}

// Rotation is the current mode/stage rotation, fetched alongside the
// periodic job but unrelated to rankings.
type Rotation struct {
	StartedAt time.Time `json:"started_at"`
	Mode      string    `json:"mode"`
	Stages    []string  `json:"stages"`
}
