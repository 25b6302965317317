package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key addresses one cache entry: a base report name plus a variant suffix
// for computations scoped to a particular snapshot. A new variant naturally
// produces a new, uncached entry without explicit invalidation.
type Key struct {
	Name    string
	Variant string
}

func (k Key) String() string {
	if k.Variant == "" {
		return k.Name
	}
	return k.Name + ":" + k.Variant
}

// Producer computes the value for a cache miss. It must be side-effect
// free; its result is stored as JSON.
type Producer func(ctx context.Context) (any, error)

// Cache memoizes expensive report computations on disk with a per-entry
// TTL. Expiry is computed from the persisted timestamp, so entries do not
// outlive their TTL across process restarts. At most one producer per key
// is in flight at a time.
type Cache struct {
	dir    string
	flight singleflight.Group
	now    func() time.Time
}

func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, now: time.Now}, nil
}

type entry struct {
	Key        string          `json:"key"`
	StoredAt   time.Time       `json:"stored_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Value      json.RawMessage `json:"value"`
}

// Wrap returns the cached value for key if a non-expired entry exists,
// otherwise invokes producer, stores the result, and returns it. Producer
// errors propagate uncached: a failed computation leaves any prior entry
// untouched, and the next call retries.
func (c *Cache) Wrap(ctx context.Context, key Key, ttl time.Duration, producer Producer) (json.RawMessage, error) {
	if value, ok := c.read(key, ttl); ok {
		return value, nil
	}

	out, err, _ := c.flight.Do(key.String(), func() (any, error) {
		// A concurrent caller may have refreshed the entry while this
		// one waited on the flight.
		if value, ok := c.read(key, ttl); ok {
			return value, nil
		}

		result, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal cache value %q: %w", key, err)
		}
		if err := c.write(key, ttl, value); err != nil {
			return nil, err
		}
		return json.RawMessage(value), nil
	})
	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *Cache) read(key Key, ttl time.Duration) (json.RawMessage, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if c.now().Sub(e.StoredAt) >= time.Duration(e.TTLSeconds)*time.Second {
		return nil, false
	}
	return e.Value, true
}

// write exposes the new entry atomically: readers see either the previous
// complete entry or the new one, never a partial write.
func (c *Cache) write(key Key, ttl time.Duration, value json.RawMessage) error {
	e := entry{
		Key:        key.String(),
		StoredAt:   c.now(),
		TTLSeconds: int64(ttl / time.Second),
		Value:      value,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry %q: %w", key, err)
	}

	path := c.path(key)
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("expose cache entry %q: %w", key, err)
	}
	return nil
}

func (c *Cache) path(key Key) string {
	return filepath.Join(c.dir, sanitize(key.String())+".json")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
