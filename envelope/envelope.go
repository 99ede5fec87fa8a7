// Package envelope defines the tagged success/failure record every client
// operation returns. Failures travel as data, never as a Go error crossing a
// client boundary.
package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Code string

const (
	CodeUpstream       Code = "UPSTREAM_ERROR"
	CodeDecode         Code = "DECODE_ERROR"
	CodeCache          Code = "CACHE_ERROR"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeSpaceWeather   Code = "SPACE_WEATHER_ERROR"
	CodeAuroraForecast Code = "AURORA_FORECAST_ERROR"
)

var statusByCode = map[Code]int{
	CodeUpstream:       http.StatusBadGateway,
	CodeDecode:         http.StatusBadGateway,
	CodeCache:          http.StatusServiceUnavailable,
	CodeValidation:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeInternal:       http.StatusInternalServerError,
	CodeSpaceWeather:   http.StatusBadGateway,
	CodeAuroraForecast: http.StatusBadGateway,
}

// StatusFor maps an error code onto the HTTP status the API answers with.
func StatusFor(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Metadata describes where a payload came from and whether it was served from cache.
type Metadata struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Cached    bool      `json:"cached"`
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Response is the success/failure envelope. Exactly one of Data and Error is
// meaningful, selected by Success.
type Response[T any] struct {
	Success  bool     `json:"success"`
	Data     T        `json:"data"`
	Error    *Error   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

func OK[T any](data T, meta Metadata) Response[T] {
	return Response[T]{Success: true, Data: data, Metadata: meta}
}

func Fail[T any](code Code, message string, meta Metadata) Response[T] {
	return Response[T]{Error: &Error{Code: code, Message: message}, Metadata: meta}
}

// FailWithDetails is Fail with a details payload attached to the error.
func FailWithDetails[T any](code Code, message string, details any, meta Metadata) Response[T] {
	r := Fail[T](code, message, meta)
	r.Error.Details = details
	return r
}

// Err returns the failure as an error, or nil on success.
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == nil {
		return &Error{Code: CodeInternal, Message: "failure envelope without error"}
	}
	return r.Error
}

// Map reshapes a successful payload; failures pass through with their error and metadata.
func Map[T, U any](r Response[T], fn func(T) U) Response[U] {
	if !r.Success {
		return Response[U]{Error: r.Error, Metadata: r.Metadata}
	}
	return OK(fn(r.Data), r.Metadata)
}

// MarshalJSON emits either data or error, never both.
func (r Response[T]) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success  bool     `json:"success"`
			Data     T        `json:"data"`
			Metadata Metadata `json:"metadata"`
		}{true, r.Data, r.Metadata})
	}
	e := r.Error
	if e == nil {
		e = &Error{Code: CodeInternal, Message: "unknown error"}
	}
	return json.Marshal(struct {
		Success  bool     `json:"success"`
		Error    *Error   `json:"error"`
		Metadata Metadata `json:"metadata"`
	}{false, e, r.Metadata})
}
