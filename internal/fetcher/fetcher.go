package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/statdeck/ladderd/internal/model"
)

// Client is the typed HTTP client for the remote ranking API. All methods
// classify failures: a *APIError is a structured rejection from the service
// (expected, recoverable); any other error is unexpected.
type Client struct {
	http    *http.Client
	baseURL string
}

func New(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// FetchPower fetches the power-ladder snapshot identified by id. The window
// start and division are part of the request path, so the remote answers
// with a 4xx rejection if the window has not been published yet.
func (c *Client) FetchPower(ctx context.Context, id model.SnapshotID, div model.Division, window time.Time) (model.Snapshot, error) {
	path := fmt.Sprintf("/v1/power/%s/%s", div, window.UTC().Format(time.RFC3339))
	var payload rankingPayload
	if err := c.get(ctx, path, &payload); err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		ID:        id,
		Kind:      model.KindPower,
		Division:  div,
		FetchedAt: time.Now().UTC(),
		Entries:   payload.Entries,
	}, nil
}

// FetchLeague fetches the monthly league standings for a calendar month.
func (c *Client) FetchLeague(ctx context.Context, year int, month time.Month) (model.Snapshot, error) {
	path := fmt.Sprintf("/v1/league/%04d/%02d", year, int(month))
	var payload rankingPayload
	if err := c.get(ctx, path, &payload); err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		ID:        model.LeagueID(year, month),
		Kind:      model.KindLeague,
		FetchedAt: time.Now().UTC(),
		Entries:   payload.Entries,
	}, nil
}

// FetchEventSchedule fetches the published tournament schedule across all
// regions.
func (c *Client) FetchEventSchedule(ctx context.Context) ([]model.EventScheduleEntry, error) {
	var payload struct {
		Events []model.EventScheduleEntry `json:"events"`
	}
	if err := c.get(ctx, "/v1/events/schedule", &payload); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

// FetchEvent fetches the final standings of one regional tournament.
func (c *Client) FetchEvent(ctx context.Context, region, eventID string) (model.Snapshot, error) {
	path := fmt.Sprintf("/v1/events/%s/%s", url.PathEscape(region), url.PathEscape(eventID))
	var payload rankingPayload
	if err := c.get(ctx, path, &payload); err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		ID:        model.EventID(region, eventID),
		Kind:      model.KindEvent,
		FetchedAt: time.Now().UTC(),
		Entries:   payload.Entries,
	}, nil
}

// FetchRotation fetches the current mode/stage rotation.
func (c *Client) FetchRotation(ctx context.Context) (model.Rotation, error) {
	var rot model.Rotation
	if err := c.get(ctx, "/v1/rotation", &rot); err != nil {
		return model.Rotation{}, err
	}
	return rot, nil
}

type rankingPayload struct {
	Entries []model.RankingEntry `json:"entries"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}

	slog.Debug("fetching from ranking api", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body %s: %w", path, err)
	}

	// 4xx with a structured error body is a normal rejection from the
	// service; everything else non-200 is an unexpected fault.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("ranking api returned %d for %s with unparseable body", resp.StatusCode, path)
		}
		return apiErr
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ranking api returned %d for %s", resp.StatusCode, path)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
