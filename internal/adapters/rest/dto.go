package rest

import (
	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

// ReadingResponse is the body of a successful GET.
type ReadingResponse struct {
	ID        int64   `json:"id"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// AddReadingRequest is the body of a POST.
type AddReadingRequest struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

// convertReadingToResponse converts domain model to the wire shape
func convertReadingToResponse(r *domain.Reading) ReadingResponse {
	return ReadingResponse{
		ID:        r.ID,
		Value:     r.Value,
		Unit:      r.Unit,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func (req AddReadingRequest) toDomain(sensorID int) domain.Reading {
	return domain.NewReading(sensorID, req.Value, req.Unit, req.Status, req.CreatedAt)
}
