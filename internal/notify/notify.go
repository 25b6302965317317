package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/statdeck/ladderd/internal/model"
)

// Notifier consumes a batch of freshly ingested snapshots and performs a
// one-way side effect. Failures are logged by the caller and never
// propagate into ingestion state.
type Notifier interface {
	Notify(ctx context.Context, batch []model.Snapshot) error
}

// Webhook posts a summary of each batch to a configured URL.
type Webhook struct {
	client *http.Client
	url    string
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}
}

type update struct {
	SnapshotID model.SnapshotID `json:"snapshot_id"`
	Division   model.Division   `json:"division,omitempty"`
	Players    int              `json:"players"`
	TopPlayer  string           `json:"top_player,omitempty"`
	TopRating  float64          `json:"top_rating,omitempty"`
}

func (w *Webhook) Notify(ctx context.Context, batch []model.Snapshot) error {
	updates := make([]update, 0, len(batch))
	for _, snap := range batch {
		u := update{
			SnapshotID: snap.ID,
			Division:   snap.Division,
			Players:    len(snap.Entries),
		}
		if len(snap.Entries) > 0 {
			u.TopPlayer = snap.Entries[0].PlayerName
			u.TopRating = snap.Entries[0].Rating
		}
		updates = append(updates, u)
	}

	body, err := json.Marshal(map[string]any{"updates": updates})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Noop discards every batch. Used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(context.Context, []model.Snapshot) error { return nil }
