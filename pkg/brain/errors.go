package brain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the turn-based intelligence layer.
var (
	// ErrMissingAPIKey indicates no API key was provided.
	ErrMissingAPIKey = errors.New("brain: missing API key")

	// ErrEmptyPrompt indicates an empty prompt was submitted.
	ErrEmptyPrompt = errors.New("brain: empty prompt")

	// ErrNoResponse indicates the model returned no candidates.
	ErrNoResponse = errors.New("brain: no response from model")

	// ErrEmptySpeechText indicates synthesis was asked for empty text.
	ErrEmptySpeechText = errors.New("brain: empty speech text")
)

// APIError represents an error returned by the model API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("brain: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("brain: API error %d: %s", e.StatusCode, e.Message)
}

// NewAPIError creates an APIError, deriving retryability from status.
func NewAPIError(statusCode int, code, message string) *APIError {
	retryable := statusCode == 429 || statusCode >= 500
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Retryable:  retryable,
	}
}

// IsRetryable returns true for transient failures worth retrying.
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// IsUnauthorized returns true for authentication failures.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRateLimited returns true when the API is throttling.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsNotFound returns true when the requested resource is missing.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsAuthError reports whether err calls for credential recovery.
// Besides plain 401/403 responses, the live endpoint signals an expired
// or revoked key with a "Requested entity was not found" close reason.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsUnauthorized() {
			return true
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "Requested entity was not found") {
		return true
	}
	if strings.Contains(msg, "API key not valid") {
		return true
	}
	return false
}
