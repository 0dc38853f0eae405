package api

import (
	"errors"
	"fmt"
)

// Error codes carried by APIError.Code.
const (
	CodeTimeout = "timeout"
	CodeNetwork = "network"
	CodeHTTP    = "http_error"
	CodeDecode  = "decode"
)

// Sentinel errors matched through errors.Is against an *APIError.
var (
	ErrTimeout = errors.New("api: request timed out")
	ErrNetwork = errors.New("api: backend unreachable")
	ErrHTTP    = errors.New("api: backend returned an error status")
	ErrDecode  = errors.New("api: malformed response body")
)

// APIError is returned for every failed backend call except caller
// cancellation, which surfaces as the context's own error.
type APIError struct {
	Status  int
	Code    string
	Message string
	Method  string
	Path    string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTimeout) and friends work on the error code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Code == CodeTimeout
	case ErrNetwork:
		return e.Code == CodeNetwork
	case ErrHTTP:
		return e.Code == CodeHTTP
	case ErrDecode:
		return e.Code == CodeDecode
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ErrorCode extracts the APIError code from err, or "".
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func statusFallback(status int) string {
	return fmt.Sprintf("Request failed with status %d", status)
}
