package sqlstore

import (
	"fmt"
)

// Dialect holds the driver name and the statements for one SQL backend.
type Dialect struct {
	Driver       string
	schema       string
	selectLatest string
	insert       string
}

// Postgres is the production dialect (lib/pq).
var Postgres = Dialect{
	Driver: "postgres",
	schema: `
	CREATE TABLE IF NOT EXISTS sensor_data (
		id BIGSERIAL PRIMARY KEY,
		sensor_id INTEGER NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sensor_data_latest
		ON sensor_data (sensor_id, created_at DESC, id DESC);
	`,
	selectLatest: `
		SELECT id, sensor_id, value, unit, status, created_at
		FROM sensor_data
		WHERE sensor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`,
	insert: `INSERT INTO sensor_data (sensor_id, value, unit, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// SQLite is the local development dialect (mattn/go-sqlite3).
// Timestamps are written in UTC, which keeps their text form ordered.
var SQLite = Dialect{
	Driver: "sqlite3",
	schema: `
	CREATE TABLE IF NOT EXISTS sensor_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sensor_id INTEGER NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sensor_data_latest
		ON sensor_data (sensor_id, created_at DESC, id DESC);
	`,
	selectLatest: `
		SELECT id, sensor_id, value, unit, status, created_at
		FROM sensor_data
		WHERE sensor_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`,
	insert: `INSERT INTO sensor_data (sensor_id, value, unit, status, created_at) VALUES (?, ?, ?, ?, ?)`,
}

// DialectFor resolves a configured store driver name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver %q", name)
	}
}
