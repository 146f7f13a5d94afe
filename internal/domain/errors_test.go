package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/analogist/internal/domain/usage"
)

func TestInvalidInputError(t *testing.T) {
	err := NewInvalidInput("Concept %d is too long", 2)
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected errors.Is(err, ErrInvalidInput)")
	}
	if err.Error() != "Concept 2 is too long" {
		t.Errorf("message = %q", err.Error())
	}

	wrapped := fmt.Errorf("generate: %w", err)
	var iie *InvalidInputError
	if !errors.As(wrapped, &iie) {
		t.Fatal("expected errors.As to find InvalidInputError")
	}
}

func TestQuotaExceededError(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	resetsAt := time.Date(2024, 1, 16, 0, 0, 0, 0, la)
	snap := usage.NewSnapshot(1000, 1000, "2024-01-15", resetsAt)

	err = NewQuotaExceeded(snap)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("expected errors.Is(err, ErrQuotaExceeded)")
	}
	want := "Daily limit of 1000 requests reached. Resets at midnight PST."
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatal("expected errors.As to find QuotaExceededError")
	}
	if qe.Usage.Current() != 1000 || qe.Usage.Remaining() != 0 {
		t.Errorf("usage = %d/%d", qe.Usage.Current(), qe.Usage.Remaining())
	}
}

func TestQuotaExceededError_UTC(t *testing.T) {
	snap := usage.NewSnapshot(5, 5, "2024-01-15", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	want := "Daily limit of 5 requests reached. Resets at midnight UTC."
	if got := NewQuotaExceeded(snap).Error(); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestUpstreamError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		cause   error
		want    string
	}{
		{"backend message", "API key not valid", nil, "API key not valid"},
		{"empty message falls back", "", nil, "Failed to generate analogy"},
		{"with cause", "Generation timed out after 30s", context.DeadlineExceeded, "Generation timed out after 30s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUpstreamError(tt.message, tt.cause)
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
			if !errors.Is(err, ErrUpstream) {
				t.Error("expected errors.Is(err, ErrUpstream)")
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("expected errors.Is(err, %v)", tt.cause)
			}
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrInvalidInput, ErrQuotaExceeded, ErrUpstream, ErrConfiguration, ErrStoreUnavailable}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v unexpectedly matches %v", a, b)
			}
		}
	}
}
