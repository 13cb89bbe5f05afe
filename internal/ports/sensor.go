package ports

import (
	"context"
)

// Sample is one raw measurement taken from a sensor.
type Sample struct {
	Value  float64
	Unit   string
	Status string
}

// Sensor defines how to take a measurement
// This is a PORT - adapters (Mock, hardware) will implement it
type Sensor interface {
	// Read returns the current measurement
	Read(ctx context.Context) (Sample, error)

	// Close releases any resources
	Close() error
}
