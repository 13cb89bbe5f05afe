package ports

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

// Recorder handles periodic sensor reading and storage
type Recorder struct {
	sensorID int
	sensor   Sensor
	svc      domain.ReadingService
	interval time.Duration
}

// NewRecorder creates a new background recorder that files every sample
// under sensorID
func NewRecorder(sensorID int, sensor Sensor, svc domain.ReadingService, interval time.Duration) *Recorder {
	return &Recorder{
		sensorID: sensorID,
		sensor:   sensor,
		svc:      svc,
		interval: interval,
	}
}

// Start begins periodic sensor reading
// This runs in a goroutine until context is cancelled
func (r *Recorder) Start(ctx context.Context) {
	log.Info().
		Int("sensor_id", r.sensorID).
		Dur("interval", r.interval).
		Msg("starting background recorder")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Record immediately on start
	r.recordOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.recordOnce(ctx)

		case <-ctx.Done():
			log.Info().Msg("stopping background recorder")
			return
		}
	}
}

// recordOnce reads sensor and records it through the service
func (r *Recorder) recordOnce(ctx context.Context) {
	log.Debug().Int("sensor_id", r.sensorID).Msg("reading sensor")

	sample, err := r.sensor.Read(ctx)
	if err != nil {
		log.Error().Err(err).Int("sensor_id", r.sensorID).Msg("failed to read sensor")
		return
	}

	reading := domain.NewReading(r.sensorID, sample.Value, sample.Unit, sample.Status,
		domain.FormatCanonical(time.Now()))

	if err := r.svc.Add(ctx, r.sensorID, reading); err != nil {
		log.Error().Err(err).Int("sensor_id", r.sensorID).Msg("failed to save reading")
		return
	}

	log.Info().
		Int("sensor_id", r.sensorID).
		Float64("value", sample.Value).
		Str("unit", sample.Unit).
		Str("status", sample.Status).
		Msg("recorded sensor reading")
}
