package domain

import (
	"context"
)

// ReadingRepository defines operations for storing/retrieving readings
// This is a PORT - adapters (SQL, Memory, Cache) implement it.
// Implementations return only *StorageError.
type ReadingRepository interface {
	// Get retrieves the latest reading for a sensor: newest CreatedAt,
	// ties broken by the highest ID.
	Get(ctx context.Context, sensorID int) (*Reading, error)

	// Add normalizes reading.CreatedAt and persists the reading.
	// Any ID on the reading is ignored; the store assigns one.
	Add(ctx context.Context, sensorID int, reading Reading) error
}

// ReadingService is the contract consumed by the transport adapters.
// Errors returned are always *CommonError.
type ReadingService interface {
	Get(ctx context.Context, sensorID int) (*Reading, error)
	Add(ctx context.Context, sensorID int, reading Reading) error
}

// Pinger is implemented by repositories that can report store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
