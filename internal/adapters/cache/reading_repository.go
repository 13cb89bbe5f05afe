package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

const keyPrefix = "statemon:sensor:"

// ReadingRepository is a read-through cache of each sensor's latest reading
// in front of another repository. Redis trouble is logged and bypassed; it
// never changes what the caller sees.
type ReadingRepository struct {
	next   domain.ReadingRepository
	client *redis.Client
	ttl    time.Duration
}

var _ domain.ReadingRepository = (*ReadingRepository)(nil)

// NewReadingRepository wraps next with a Redis cache.
func NewReadingRepository(next domain.ReadingRepository, client *redis.Client, ttl time.Duration) *ReadingRepository {
	return &ReadingRepository{next: next, client: client, ttl: ttl}
}

type cachedReading struct {
	ID        int64   `json:"id"`
	SensorID  int     `json:"sensor_id"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

// Get serves from Redis when possible, otherwise from the wrapped store.
// The store read runs under WATCH on the sensor's generation key, so a
// reading fetched before a concurrent Add is never written back.
func (r *ReadingRepository) Get(ctx context.Context, sensorID int) (*domain.Reading, error) {
	key := latestKey(sensorID)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c cachedReading
		if jerr := json.Unmarshal(raw, &c); jerr == nil {
			reading := domain.Reading(c)
			return &reading, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	var (
		reading  *domain.Reading
		storeErr error
		loaded   bool
	)
	werr := r.client.Watch(ctx, func(tx *redis.Tx) error {
		loaded = true
		reading, storeErr = r.next.Get(ctx, sensorID)
		if storeErr != nil {
			return storeErr
		}
		b, err := json.Marshal(cachedReading(*reading))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, r.ttl)
			return nil
		})
		return err
	}, generationKey(sensorID))

	if storeErr != nil {
		return nil, storeErr
	}
	if !loaded {
		// WATCH itself failed; Redis is unusable for this call.
		log.Warn().Err(werr).Str("key", key).Msg("cache unavailable, reading from store")
		return r.next.Get(ctx, sensorID)
	}

	switch {
	case werr == nil:
	case errors.Is(werr, redis.TxFailedErr):
		log.Debug().Int("sensor_id", sensorID).Msg("reading changed during load, not caching")
	default:
		log.Warn().Err(werr).Str("key", key).Msg("cache write failed")
	}
	return reading, nil
}

// Add writes through to the wrapped store, bumps the sensor's generation
// and drops the cached latest.
func (r *ReadingRepository) Add(ctx context.Context, sensorID int, reading domain.Reading) error {
	if err := r.next.Add(ctx, sensorID, reading); err != nil {
		return err
	}

	key := latestKey(sensorID)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationKey(sensorID))
		p.Del(ctx, key)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
	return nil
}

// Ping checks the wrapped store; the cache is optional.
func (r *ReadingRepository) Ping(ctx context.Context) error {
	if p, ok := r.next.(domain.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func latestKey(sensorID int) string {
	return fmt.Sprintf("%s%d:latest", keyPrefix, sensorID)
}

func generationKey(sensorID int) string {
	return fmt.Sprintf("%s%d:gen", keyPrefix, sensorID)
}
