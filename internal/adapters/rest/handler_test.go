package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/service"
)

// startTestServer creates an in-process HTTP server backed by the memory store.
// The server is stopped when the test ends.
func startTestServer(t *testing.T) (*httptest.Server, *memory.ReadingRepository) {
	t.Helper()

	repo := memory.NewReadingRepository()
	srv := httptest.NewServer(NewRouter(service.NewSensorDataService(repo)))
	t.Cleanup(srv.Close)

	return srv, repo
}

func postReading(t *testing.T, srv *httptest.Server, sensorID string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/sensor/data?sensor_id="+sensorID, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getReading(t *testing.T, srv *httptest.Server, sensorID string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/v1/sensor/data?sensor_id=" + sensorID)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAddThenGet(t *testing.T) {
	srv, _ := startTestServer(t)

	resp := postReading(t, srv, "5", `{"value":3.2,"unit":"C","status":"OK","createdAt":"2024-01-01T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(body))

	resp = getReading(t, srv, "5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	got := decode[ReadingResponse](t, resp)
	assert.Equal(t, 3.2, got.Value)
	assert.Equal(t, "C", got.Unit)
	assert.Equal(t, "OK", got.Status)
	assert.Equal(t, "2024-01-01 12:00:00.000000", got.CreatedAt)
	assert.NotZero(t, got.ID)
}

func TestGet_ReturnsLaterOfTwo(t *testing.T) {
	srv, _ := startTestServer(t)

	postReading(t, srv, "5", `{"value":1,"unit":"C","status":"OK","createdAt":"2024-01-01 12:00:00.000001"}`)
	postReading(t, srv, "5", `{"value":2,"unit":"C","status":"OK","createdAt":"2024-01-01 12:00:00.000002"}`)

	got := decode[ReadingResponse](t, getReading(t, srv, "5"))
	assert.Equal(t, 2.0, got.Value)
	assert.Equal(t, "2024-01-01 12:00:00.000002", got.CreatedAt)
}

func TestGet_UnknownSensorIs404(t *testing.T) {
	srv, _ := startTestServer(t)

	resp := getReading(t, srv, "99")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	got := decode[ErrorResponse](t, resp)
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.NotEmpty(t, got.Error)
}

func TestAdd_UnparseableTimestampUsesNow(t *testing.T) {
	srv, _ := startTestServer(t)

	before := time.Now().UTC().Add(-time.Second)
	resp := postReading(t, srv, "5", `{"value":1,"unit":"C","status":"OK","createdAt":"not-a-date"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := time.Now().UTC().Add(time.Second)

	got := decode[ReadingResponse](t, getReading(t, srv, "5"))
	ts, err := time.Parse(domain.CanonicalLayout, got.CreatedAt)
	require.NoError(t, err)
	assert.True(t, !ts.Before(before) && !ts.After(after), "createdAt %v outside call window", ts)
}

func TestBadRequests(t *testing.T) {
	srv, _ := startTestServer(t)

	tests := []struct {
		name       string
		method     string
		query      string
		body       string
		wantPrefix string
	}{
		{name: "get missing sensor_id", method: http.MethodGet, query: "", wantPrefix: "Query parameter error"},
		{name: "get non-numeric sensor_id", method: http.MethodGet, query: "?sensor_id=abc", wantPrefix: "Query parameter error"},
		{name: "get overflowing sensor_id", method: http.MethodGet, query: "?sensor_id=99999999999", wantPrefix: "Query parameter error"},
		{name: "post missing sensor_id", method: http.MethodPost, query: "", body: `{}`, wantPrefix: "Query parameter error"},
		{name: "post malformed json", method: http.MethodPost, query: "?sensor_id=1", body: `{"value":`, wantPrefix: "JSON deserialize error"},
		{name: "post wrong value type", method: http.MethodPost, query: "?sensor_id=1", body: `{"value":"hot"}`, wantPrefix: "JSON deserialize error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+"/api/v1/sensor/data"+tt.query, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			got := decode[ErrorResponse](t, resp)
			assert.Equal(t, http.StatusBadRequest, got.StatusCode)
			assert.True(t, strings.HasPrefix(got.Error, tt.wantPrefix), "error %q", got.Error)
		})
	}
}

func TestAdd_StorageFailureIs422(t *testing.T) {
	srv, repo := startTestServer(t)
	repo.FailWith(nil, errors.New("insert failed"))

	resp := postReading(t, srv, "5", `{"value":1,"unit":"C","status":"OK","createdAt":"2024-01-01 12:00:00"}`)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	got := decode[ErrorResponse](t, resp)
	assert.Equal(t, http.StatusUnprocessableEntity, got.StatusCode)
}

func TestGet_StorageFailureIs404(t *testing.T) {
	srv, repo := startTestServer(t)
	repo.FailWith(errors.New("pool exhausted"), nil)

	resp := getReading(t, srv, "5")

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := startTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))

	resp2, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.NotEmpty(t, resp2.Header.Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := startTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/sensor/data?sensor_id=1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type panickingService struct{}

func (panickingService) Get(ctx context.Context, sensorID int) (*domain.Reading, error) {
	panic("nil map")
}

func (panickingService) Add(ctx context.Context, sensorID int, reading domain.Reading) error {
	panic("nil map")
}

func TestPanicRecovery(t *testing.T) {
	srv := httptest.NewServer(NewRouter(panickingService{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sensor/data?sensor_id=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	got := decode[ErrorResponse](t, resp)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}

func TestToAPIError_NonDomainErrorIs500(t *testing.T) {
	got := toAPIError(errors.New("unexpected"))
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}
