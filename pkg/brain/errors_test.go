package brain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAPIErrorRetryability(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		err := NewAPIError(tt.status, "", "boom")
		if err.IsRetryable() != tt.retryable {
			t.Errorf("status %d: IsRetryable() = %v, want %v", tt.status, err.IsRetryable(), tt.retryable)
		}
	}
}

func TestAPIErrorClassification(t *testing.T) {
	if !NewAPIError(401, "UNAUTHENTICATED", "bad key").IsUnauthorized() {
		t.Error("401 should be unauthorized")
	}
	if !NewAPIError(403, "PERMISSION_DENIED", "no access").IsUnauthorized() {
		t.Error("403 should be unauthorized")
	}
	if !NewAPIError(429, "RESOURCE_EXHAUSTED", "slow down").IsRateLimited() {
		t.Error("429 should be rate limited")
	}
	if !NewAPIError(404, "NOT_FOUND", "gone").IsNotFound() {
		t.Error("404 should be not found")
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unauthorized api error", NewAPIError(401, "", "bad key"), true},
		{"forbidden api error", NewAPIError(403, "", "no"), true},
		{"server error", NewAPIError(500, "", "oops"), false},
		{"wrapped unauthorized", fmt.Errorf("query failed: %w", NewAPIError(403, "", "no")), true},
		{"entity not found close reason", errors.New("websocket: close 1008: Requested entity was not found"), true},
		{"invalid key message", errors.New("API key not valid. Please pass a valid API key."), true},
		{"plain failure", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := NewAPIError(429, "RESOURCE_EXHAUSTED", "quota exceeded")
	want := "brain: API error 429 (RESOURCE_EXHAUSTED): quota exceeded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewAPIError(500, "", "internal")
	if bare.Error() != "brain: API error 500: internal" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
