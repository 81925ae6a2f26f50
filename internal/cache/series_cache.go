// Package cache keeps fetched series in Redis so repeated analyses and
// batch reruns do not hit FRED again until the entry expires.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/ingestion"
	"sahm-rule-lab/internal/observability"
)

// DefaultTTL is how long a cached series stays valid.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "sahm:series:"

// NewRedisClient creates a Redis client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
}

// SeriesCache is a read-through cache in front of a SeriesSource.
// Redis failures are logged and the request falls through to the source.
type SeriesCache struct {
	client redis.Cmdable
	source ingestion.SeriesSource
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSeriesCache wraps source. A ttl <= 0 selects DefaultTTL.
func NewSeriesCache(client redis.Cmdable, source ingestion.SeriesSource, ttl time.Duration, logger zerolog.Logger) *SeriesCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeriesCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// Observations returns the cached series or fetches and caches it.
func (c *SeriesCache) Observations(ctx context.Context, seriesID string, start time.Time) ([]domain.Observation, error) {
	key := Key(seriesID, start)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		obs, derr := decode(raw)
		if derr == nil {
			observability.RecordCacheLookup(true)
			return obs, nil
		}
		c.logger.Warn().Err(derr).Str("key", key).Msg("discarding corrupt cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	observability.RecordCacheLookup(false)

	obs, err := c.source.Observations(ctx, seriesID, start)
	if err != nil {
		return nil, err
	}

	data, err := encode(seriesID, obs)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return obs, nil
}

var _ ingestion.SeriesSource = (*SeriesCache)(nil)

// Key returns the cache key of a series fetched from start.
func Key(seriesID string, start time.Time) string {
	from := "all"
	if !start.IsZero() {
		from = start.Format(time.DateOnly)
	}
	return keyPrefix + seriesID + ":" + from
}

type entry struct {
	SeriesID     string        `json:"series_id"`
	CachedAt     time.Time     `json:"cached_at"`
	Observations []observation `json:"observations"`
}

type observation struct {
	Date           string   `json:"date"`
	Value          *float64 `json:"value,omitempty"`
	Deseasonalized *float64 `json:"deseasonalized_value,omitempty"`
}

func encode(seriesID string, obs []domain.Observation) ([]byte, error) {
	e := entry{
		SeriesID:     seriesID,
		CachedAt:     time.Now().UTC(),
		Observations: make([]observation, len(obs)),
	}
	for i, o := range obs {
		e.Observations[i] = observation{
			Date:           o.Date.Format(time.DateOnly),
			Value:          toPtr(o.Value),
			Deseasonalized: toPtr(o.Deseasonalized),
		}
	}
	return json.Marshal(e)
}

func decode(data []byte) ([]domain.Observation, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	obs := make([]domain.Observation, len(e.Observations))
	for i, o := range e.Observations {
		date, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return nil, fmt.Errorf("decode cache entry: %w", err)
		}
		obs[i] = domain.Observation{
			SeriesID:       e.SeriesID,
			Date:           date,
			Value:          fromPtr(o.Value),
			Deseasonalized: fromPtr(o.Deseasonalized),
		}
	}
	return obs, nil
}

func toPtr(v domain.NullFloat) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func fromPtr(v *float64) domain.NullFloat {
	if v == nil {
		return domain.Missing
	}
	return domain.Float(*v)
}
