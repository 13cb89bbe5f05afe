package domain

// Reading represents a single sensor measurement.
// CreatedAt holds the caller-supplied timestamp on the way in and the
// canonical UTC form (see FormatCanonical) on the way out.
type Reading struct {
	ID        int64
	SensorID  int
	Value     float64
	Unit      string
	Status    string
	CreatedAt string
}

// NewReading builds an unpersisted reading for a sensor.
// No validation happens here: any well-typed reading is accepted.
func NewReading(sensorID int, value float64, unit, status, createdAt string) Reading {
	return Reading{
		SensorID:  sensorID,
		Value:     value,
		Unit:      unit,
		Status:    status,
		CreatedAt: createdAt,
	}
}

// IsPersisted reports whether the store has assigned an id
func (r Reading) IsPersisted() bool {
	return r.ID != 0
}

// Newer reports whether r sorts before other in "latest first" order:
// later timestamp wins, equal timestamps fall back to the higher id.
// Both readings must carry canonical timestamps.
func (r Reading) Newer(other Reading) bool {
	if r.CreatedAt != other.CreatedAt {
		// Canonical strings are fixed-width UTC, so they order lexically.
		return r.CreatedAt > other.CreatedAt
	}
	return r.ID > other.ID
}
