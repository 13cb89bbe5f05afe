// Package client is a Go client for the statemon HTTP API.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	sensorDataPath = "/api/v1/sensor/data"
	defaultTimeout = 10 * time.Second
)

// Reading is the latest reading of a sensor as served by the API.
type Reading struct {
	ID        int64   `json:"id"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// AddReading is the body of a new reading. CreatedAt accepts RFC 3339 or
// "YYYY-MM-DD HH:MM:SS[.ffffff]" (read as UTC).
type AddReading struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// APIError is returned for every non-2xx response.
type APIError struct {
	Message    string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("statemon: %d: %s", e.StatusCode, e.Message)
}

// Client talks to one statemon server. It does not retry.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithTLS sets the TLS configuration, e.g. from tlsconfig.LoadClientTLS.
func WithTLS(cfg *tls.Config) Option {
	return func(c *resty.Client) { c.SetTLSClientConfig(cfg) }
}

// New creates a client for the server at baseURL, e.g. http://localhost:7676.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// GetSensorData returns the latest reading for sensorID.
func (c *Client) GetSensorData(ctx context.Context, sensorID int) (*Reading, error) {
	var out Reading
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("sensor_id", strconv.Itoa(sensorID)).
		SetResult(&out).
		SetError(&APIError{}).
		Get(sensorDataPath)
	if err != nil {
		return nil, fmt.Errorf("get sensor data: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddSensorData records a reading for sensorID.
func (c *Client) AddSensorData(ctx context.Context, sensorID int, reading AddReading) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("sensor_id", strconv.Itoa(sensorID)).
		SetHeader("Content-Type", "application/json").
		SetBody(reading).
		SetError(&APIError{}).
		Post(sensorDataPath)
	if err != nil {
		return fmt.Errorf("add sensor data: %w", err)
	}
	return apiError(resp)
}

func apiError(resp *resty.Response) error {
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	if e, ok := resp.Error().(*APIError); ok && e.Message != "" {
		if e.StatusCode == 0 {
			e.StatusCode = resp.StatusCode()
		}
		return e
	}
	return &APIError{
		Message:    strings.TrimSpace(resp.String()),
		StatusCode: resp.StatusCode(),
	}
}
