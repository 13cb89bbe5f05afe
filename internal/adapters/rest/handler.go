package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

const maxBodyBytes = 1 << 20

// SensorDataHandler serves /api/v1/sensor/data
type SensorDataHandler struct {
	svc domain.ReadingService
}

// NewSensorDataHandler creates a new HTTP handler
func NewSensorDataHandler(svc domain.ReadingService) *SensorDataHandler {
	return &SensorDataHandler{svc: svc}
}

// GetSensorData returns the latest reading for ?sensor_id=
func (h *SensorDataHandler) GetSensorData(w http.ResponseWriter, r *http.Request) {
	sensorID, apiErr := sensorIDParam(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	zerolog.Ctx(r.Context()).Debug().Int("sensor_id", sensorID).Msg("GetSensorData called")

	reading, err := h.svc.Get(r.Context(), sensorID)
	if err != nil {
		writeError(w, toAPIError(err))
		return
	}

	writeJSON(w, http.StatusOK, convertReadingToResponse(reading))
}

// AddSensorData records a reading for ?sensor_id=
func (h *SensorDataHandler) AddSensorData(w http.ResponseWriter, r *http.Request) {
	sensorID, apiErr := sensorIDParam(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	var req AddReadingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, domain.BadRequest(fmt.Sprintf("JSON deserialize error: %v", err)))
		return
	}
	zerolog.Ctx(r.Context()).Debug().
		Int("sensor_id", sensorID).
		Float64("value", req.Value).
		Msg("AddSensorData called")

	if err := h.svc.Add(r.Context(), sensorID, req.toDomain(sensorID)); err != nil {
		writeError(w, toAPIError(err))
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// Health reports process liveness
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func sensorIDParam(r *http.Request) (int, *domain.APIError) {
	raw := r.URL.Query().Get("sensor_id")
	if raw == "" {
		return 0, domain.BadRequest("Query parameter error: missing field `sensor_id`")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.BadRequest(fmt.Sprintf("Query parameter error: invalid sensor_id %q", raw))
	}
	return int(id), nil
}

func toAPIError(err error) *domain.APIError {
	var ce *domain.CommonError
	if errors.As(err, &ce) {
		return domain.NewAPIError(ce)
	}
	return domain.InternalError(err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e *domain.APIError) {
	writeJSON(w, e.StatusCode, ErrorResponse{Error: e.Message, StatusCode: e.StatusCode})
}
