package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrReadingNotFound indicates no reading exists for the sensor
	ErrReadingNotFound = errors.New("reading not found")

	// ErrStorageUnavailable indicates the store could not serve the request
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrValidation marks rejected input at an ingestion boundary
	ErrValidation = errors.New("validation failed")
)

// StorageKind classifies a low-level storage failure.
type StorageKind int

const (
	StorageConnection StorageKind = iota + 1
	StorageQuery
	StorageInsert
	StorageNotFound
)

func (k StorageKind) String() string {
	switch k {
	case StorageConnection:
		return "connection"
	case StorageQuery:
		return "query"
	case StorageInsert:
		return "insert"
	case StorageNotFound:
		return "not found"
	}
	return "unknown"
}

// StorageError is the only error type a ReadingRepository returns.
type StorageError struct {
	Op       string
	SensorID int
	Kind     StorageKind
	Err      error
}

// NewStorageError wraps err with repository context.
func NewStorageError(op string, sensorID int, kind StorageKind, err error) *StorageError {
	return &StorageError{Op: op, SensorID: sensorID, Kind: kind, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s sensor %d: %s", e.Op, e.SensorID, e.Kind)
	}
	return fmt.Sprintf("%s sensor %d: %s: %v", e.Op, e.SensorID, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets callers match the taxonomy sentinels with errors.Is.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrReadingNotFound:
		return e.Kind == StorageNotFound
	case ErrStorageUnavailable:
		return e.Kind != StorageNotFound
	}
	return false
}

// CommonError is the domain-level error returned by a ReadingService.
// Code carries the HTTP-style status the service assigned.
type CommonError struct {
	Message string
	Code    int
}

func (e *CommonError) Error() string {
	return fmt.Sprintf("Error: %s, Code: %d", e.Message, e.Code)
}

// APIError is the boundary-level error rendered to HTTP clients.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error: %s, Status: %d", e.Message, e.StatusCode)
}

// NewAPIError maps a domain error onto a status the boundary knows how to
// send. Unrecognized codes degrade to 400.
func NewAPIError(err *CommonError) *APIError {
	return &APIError{Message: err.Message, StatusCode: statusFor(err.Code)}
}

// BadRequest builds a 400 for malformed input caught at the boundary.
func BadRequest(message string) *APIError {
	return &APIError{Message: message, StatusCode: http.StatusBadRequest}
}

// InternalError builds a 500.
func InternalError(message string) *APIError {
	return &APIError{Message: message, StatusCode: http.StatusInternalServerError}
}

func statusFor(code int) int {
	switch code {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError:
		return code
	default:
		return http.StatusBadRequest
	}
}
