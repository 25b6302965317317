package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statdeck/ladderd/internal/model"
)

func TestFetchPowerParsesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/power/alpha/2026-08-23T12:00:00Z", r.URL.Path)
		w.Write([]byte(`{"entries":[
			{"position":1,"player_id":"p1","player_name":"ace","rating":2801.5},
			{"position":2,"player_id":"p2","player_name":"nova","rating":2755.0}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	window := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	id := model.PowerID(window.Add(2*time.Hour), model.DivisionAlpha)

	snap, err := c.FetchPower(context.Background(), id, model.DivisionAlpha, window)
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, model.KindPower, snap.Kind)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "ace", snap.Entries[0].PlayerName)
	assert.Equal(t, 2801.5, snap.Entries[0].Rating)
}

func TestStructuredRejectionIsExpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"not_published","message":"rankings not yet published"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchLeague(context.Background(), 2026, time.July)
	require.Error(t, err)
	assert.True(t, IsExpected(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_published", apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestMalformedRejectionIsUnexpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<html>not found</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchRotation(context.Background())
	require.Error(t, err)
	assert.False(t, IsExpected(err))
}

func TestServerFaultIsUnexpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchEventSchedule(context.Background())
	require.Error(t, err)
	assert.False(t, IsExpected(err))
}

func TestFetchEventSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/events/schedule", r.URL.Path)
		w.Write([]byte(`{"events":[
			{"region":"emea","event_id":"cup-44","name":"EMEA Cup 44",
			 "starts_at":"2026-08-01T18:00:00Z","ends_at":"2026-08-03T18:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	entries, err := c.FetchEventSchedule(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cup-44", entries[0].EventID)
	assert.Equal(t, model.SnapshotID("event:emea:cup-44"), entries[0].SnapshotID())
}

func TestUnparseableBodyIsUnexpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries": not json`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchEvent(context.Background(), "emea", "cup-44")
	require.Error(t, err)
	assert.False(t, IsExpected(err))
}
