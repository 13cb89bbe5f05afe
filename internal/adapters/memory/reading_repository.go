package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

// ReadingRepository implements domain.ReadingRepository with in-memory storage
// This is perfect for tests and development - no database setup needed
type ReadingRepository struct {
	mu       sync.RWMutex
	readings map[int][]domain.Reading // by sensor id
	nextID   int64

	// failGet/failAdd force storage failures in tests
	failGet error
	failAdd error
}

var _ domain.ReadingRepository = (*ReadingRepository)(nil)

// NewReadingRepository creates an empty in-memory repository
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{
		readings: make(map[int][]domain.Reading),
		nextID:   1,
	}
}

// FailWith makes subsequent calls fail with a storage error of the matching
// kind wrapping cause. Passing nil restores normal behaviour.
func (r *ReadingRepository) FailWith(getErr, addErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failGet = getErr
	r.failAdd = addErr
}

// Get returns the latest reading for a sensor
func (r *ReadingRepository) Get(ctx context.Context, sensorID int) (*domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.failGet != nil {
		return nil, domain.NewStorageError("get", sensorID, domain.StorageQuery, r.failGet)
	}

	var latest *domain.Reading
	for i := range r.readings[sensorID] {
		reading := r.readings[sensorID][i]
		if latest == nil || reading.Newer(*latest) {
			latest = &reading
		}
	}
	if latest == nil {
		return nil, domain.NewStorageError("get", sensorID, domain.StorageNotFound, domain.ErrReadingNotFound)
	}

	out := *latest
	return &out, nil
}

// Add stores a copy of the reading with a normalized timestamp
func (r *ReadingRepository) Add(ctx context.Context, sensorID int, reading domain.Reading) error {
	createdAt, ok := domain.Normalize(reading.CreatedAt)
	if !ok {
		log.Warn().
			Int("sensor_id", sensorID).
			Str("raw_timestamp", reading.CreatedAt).
			Msg("unparseable timestamp, using current time")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAdd != nil {
		return domain.NewStorageError("add", sensorID, domain.StorageInsert, r.failAdd)
	}

	// The store assigns ids; whatever the caller sent is discarded.
	reading.ID = r.nextID
	r.nextID++
	reading.SensorID = sensorID
	reading.CreatedAt = domain.FormatCanonical(createdAt)

	r.readings[sensorID] = append(r.readings[sensorID], reading)
	return nil
}

// Count returns how many readings are stored for a sensor
func (r *ReadingRepository) Count(sensorID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.readings[sensorID])
}

// Ping always succeeds
func (r *ReadingRepository) Ping(ctx context.Context) error {
	return nil
}
