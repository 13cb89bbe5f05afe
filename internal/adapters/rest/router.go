package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

const requestIDHeader = "X-Request-ID"

// NewRouter registers the sensor data routes on a standard ServeMux and
// wraps them with request id, access log and panic recovery.
func NewRouter(svc domain.ReadingService) http.Handler {
	h := NewSensorDataHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/sensor/data", h.GetSensorData)
	mux.HandleFunc("POST /api/v1/sensor/data", h.AddSensorData)
	mux.HandleFunc("GET /health", Health)

	return withRequestContext(withRecovery(mux))
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		logger := log.With().Str("request_id", reqID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("panic in handler")
				writeError(w, domain.InternalError("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
