package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/jobs"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"collision", fmt.Errorf("create: %w", &domain.CollisionError{Hostname: 1}), http.StatusConflict},
		{"validation", fmt.Errorf("%w: blank", domain.ErrValidation), http.StatusBadRequest},
		{"not found", domain.NotFound("u1"), http.StatusNotFound},
		{"precondition", domain.Precondition("Site not active", "u1"), http.StatusPreconditionFailed},
		{"shutting down", jobs.ErrStopped, http.StatusServiceUnavailable},
		{"configuration", domain.ErrConfiguration, http.StatusInternalServerError},
		{"transport", errors.New("dial tcp: refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
