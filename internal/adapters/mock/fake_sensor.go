package mock

import (
	"context"
	"math/rand"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/ports"
)

const (
	StatusOK   = "OK"
	StatusHigh = "HIGH"
	StatusLow  = "LOW"
)

// FakeSensor simulates a sensor for development
// This implements the ports.Sensor interface
type FakeSensor struct {
	baseValue float64
	variation float64
	unit      string
}

var _ ports.Sensor = (*FakeSensor)(nil)

// NewFakeSensor creates a sensor that returns realistic values
// baseValue: average reading (e.g., 21.5 for room temperature)
// variation: +/- range (e.g., 1.5 means 20.0-23.0)
func NewFakeSensor(baseValue, variation float64, unit string) *FakeSensor {
	return &FakeSensor{
		baseValue: baseValue,
		variation: variation,
		unit:      unit,
	}
}

// Read returns a simulated reading. Values in the outer fifth of the
// variation band are flagged HIGH or LOW.
func (s *FakeSensor) Read(ctx context.Context) (ports.Sample, error) {
	if err := ctx.Err(); err != nil {
		return ports.Sample{}, err
	}

	offset := (rand.Float64() - 0.5) * 2 * s.variation
	status := StatusOK
	switch {
	case s.variation > 0 && offset > 0.8*s.variation:
		status = StatusHigh
	case s.variation > 0 && offset < -0.8*s.variation:
		status = StatusLow
	}

	return ports.Sample{
		Value:  s.baseValue + offset,
		Unit:   s.unit,
		Status: status,
	}, nil
}

// Close is a no-op for fake sensor
func (s *FakeSensor) Close() error {
	return nil
}
