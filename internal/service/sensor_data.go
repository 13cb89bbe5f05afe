package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

// SensorDataService implements domain.ReadingService on top of a repository.
// It is the only place that assigns domain error codes.
type SensorDataService struct {
	repo domain.ReadingRepository
}

var _ domain.ReadingService = (*SensorDataService)(nil)

// NewSensorDataService creates the orchestrator
func NewSensorDataService(repo domain.ReadingRepository) *SensorDataService {
	return &SensorDataService{repo: repo}
}

// Get returns the latest reading for a sensor.
// Any repository failure, not-found or otherwise, becomes a 404.
func (s *SensorDataService) Get(ctx context.Context, sensorID int) (*domain.Reading, error) {
	reading, err := s.repo.Get(ctx, sensorID)
	if err != nil {
		return nil, classify("get", sensorID, http.StatusNotFound, err)
	}
	return reading, nil
}

// Add records a reading for a sensor.
// Any repository failure becomes a 422.
func (s *SensorDataService) Add(ctx context.Context, sensorID int, reading domain.Reading) error {
	reading.ID = 0
	reading.SensorID = sensorID

	if err := s.repo.Add(ctx, sensorID, reading); err != nil {
		return classify("add", sensorID, http.StatusUnprocessableEntity, err)
	}
	return nil
}

func classify(op string, sensorID, code int, err error) *domain.CommonError {
	level := zerolog.ErrorLevel
	if errors.Is(err, domain.ErrReadingNotFound) {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).Err(err).
		Str("operation", op).
		Int("sensor_id", sensorID).
		Int("code", code).
		Msg("repository call failed")

	return &domain.CommonError{Message: err.Error(), Code: code}
}
