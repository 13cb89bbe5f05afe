package domain

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestStorageError_Is(t *testing.T) {
	tests := []struct {
		kind            StorageKind
		wantNotFound    bool
		wantUnavailable bool
	}{
		{kind: StorageNotFound, wantNotFound: true},
		{kind: StorageConnection, wantUnavailable: true},
		{kind: StorageQuery, wantUnavailable: true},
		{kind: StorageInsert, wantUnavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewStorageError("get", 1, tt.kind, nil))

			if got := errors.Is(err, ErrReadingNotFound); got != tt.wantNotFound {
				t.Errorf("Is(ErrReadingNotFound) = %v, want %v", got, tt.wantNotFound)
			}
			if got := errors.Is(err, ErrStorageUnavailable); got != tt.wantUnavailable {
				t.Errorf("Is(ErrStorageUnavailable) = %v, want %v", got, tt.wantUnavailable)
			}
			if errors.Is(err, ErrValidation) {
				t.Error("storage errors never match ErrValidation")
			}
		})
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	err := NewStorageError("get", 3, StorageQuery, sql.ErrConnDone)

	if !errors.Is(err, sql.ErrConnDone) {
		t.Error("expected driver error to be reachable through Unwrap")
	}

	var se *StorageError
	if !errors.As(fmt.Errorf("outer: %w", err), &se) {
		t.Fatal("expected errors.As to find *StorageError")
	}
	if se.SensorID != 3 || se.Op != "get" {
		t.Errorf("unexpected context: %+v", se)
	}
}

func TestNewAPIError_StatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{code: 400, want: 400},
		{code: 401, want: 401},
		{code: 403, want: 403},
		{code: 404, want: 404},
		{code: 422, want: 422},
		{code: 500, want: 500},
		{code: 1, want: 400},
		{code: 0, want: 400},
		{code: 418, want: 400},
		{code: 503, want: 400},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			got := NewAPIError(&CommonError{Message: "boom", Code: tt.code})
			if got.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", got.StatusCode, tt.want)
			}
			if got.Message != "boom" {
				t.Errorf("message = %q, want %q", got.Message, "boom")
			}
		})
	}
}
