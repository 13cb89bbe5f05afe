package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/executor"
)

const (
	opGet = "get"
	opAdd = "add"
)

// ReadingRepository implements domain.ReadingRepository over database/sql.
// Every call checks out one pooled connection and runs on the executor.
type ReadingRepository struct {
	db             *sql.DB
	dialect        Dialect
	workers        *executor.Pool
	acquireTimeout time.Duration
	queryTimeout   time.Duration
}

var _ domain.ReadingRepository = (*ReadingRepository)(nil)

// Option tunes a ReadingRepository.
type Option func(*ReadingRepository)

// WithAcquireTimeout bounds how long a call waits for a pooled connection.
func WithAcquireTimeout(d time.Duration) Option {
	return func(r *ReadingRepository) { r.acquireTimeout = d }
}

// WithQueryTimeout bounds a single statement; zero disables it.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *ReadingRepository) { r.queryTimeout = d }
}

// NewReadingRepository creates a SQL-backed repository. db and workers are
// owned by the caller.
func NewReadingRepository(db *sql.DB, dialect Dialect, workers *executor.Pool, opts ...Option) *ReadingRepository {
	r := &ReadingRepository{
		db:             db,
		dialect:        dialect,
		workers:        workers,
		acquireTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the latest reading for sensorID.
func (r *ReadingRepository) Get(ctx context.Context, sensorID int) (*domain.Reading, error) {
	reading, err := executor.Run(ctx, r.workers, func(ctx context.Context) (*domain.Reading, error) {
		return r.get(ctx, sensorID)
	})
	if err != nil {
		return nil, asStorageError(opGet, sensorID, domain.StorageQuery, err)
	}
	return reading, nil
}

// Add normalizes the timestamp and inserts the reading.
func (r *ReadingRepository) Add(ctx context.Context, sensorID int, reading domain.Reading) error {
	_, err := executor.Run(ctx, r.workers, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.add(ctx, sensorID, reading)
	})
	if err != nil {
		return asStorageError(opAdd, sensorID, domain.StorageInsert, err)
	}
	return nil
}

// Ping reports whether the store is reachable.
func (r *ReadingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ReadingRepository) get(ctx context.Context, sensorID int) (*domain.Reading, error) {
	conn, err := r.checkout(ctx)
	if err != nil {
		return nil, domain.NewStorageError(opGet, sensorID, domain.StorageConnection, err)
	}
	defer conn.Close()

	qctx, cancel := r.statementContext(ctx)
	defer cancel()

	var (
		reading   domain.Reading
		createdAt time.Time
	)
	err = conn.QueryRowContext(qctx, r.dialect.selectLatest, sensorID).Scan(
		&reading.ID,
		&reading.SensorID,
		&reading.Value,
		&reading.Unit,
		&reading.Status,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewStorageError(opGet, sensorID, domain.StorageNotFound, domain.ErrReadingNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError(opGet, sensorID, domain.StorageQuery, err)
	}

	reading.CreatedAt = domain.FormatCanonical(createdAt)
	return &reading, nil
}

func (r *ReadingRepository) add(ctx context.Context, sensorID int, reading domain.Reading) error {
	createdAt, ok := domain.Normalize(reading.CreatedAt)
	if !ok {
		log.Warn().
			Int("sensor_id", sensorID).
			Str("raw_timestamp", reading.CreatedAt).
			Time("substituted", createdAt).
			Msg("unparseable timestamp, using current time")
	}

	conn, err := r.checkout(ctx)
	if err != nil {
		return domain.NewStorageError(opAdd, sensorID, domain.StorageConnection, err)
	}
	defer conn.Close()

	qctx, cancel := r.statementContext(ctx)
	defer cancel()

	_, err = conn.ExecContext(qctx, r.dialect.insert,
		sensorID,
		reading.Value,
		reading.Unit,
		reading.Status,
		createdAt,
	)
	if err != nil {
		return domain.NewStorageError(opAdd, sensorID, domain.StorageInsert, err)
	}

	log.Debug().Int("sensor_id", sensorID).Time("created_at", createdAt).Msg("inserted reading")
	return nil
}

// checkout leases one connection from the pool. The caller must Close it.
func (r *ReadingRepository) checkout(ctx context.Context) (*sql.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()
	return r.db.Conn(actx)
}

func (r *ReadingRepository) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// asStorageError keeps the repository's error contract when the failure
// came from the executor (closed pool, abandoned wait, panic).
func asStorageError(op string, sensorID int, kind domain.StorageKind, err error) error {
	var se *domain.StorageError
	if errors.As(err, &se) {
		return se
	}
	return domain.NewStorageError(op, sensorID, kind, err)
}
