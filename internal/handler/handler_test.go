package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"content-service/internal/generation"
	"content-service/internal/stage"
	"content-service/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"illegal transition", stage.ErrIllegalTransition, http.StatusConflict},
		{"locked", stage.ErrLocked, http.StatusLocked},
		{"precondition failed", stage.ErrPreconditionFailed, http.StatusPreconditionFailed},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"job timeout", generation.ErrJobTimeout, http.StatusGatewayTimeout},
		{"submission failed", generation.ErrSubmissionFailed, http.StatusBadGateway},
		{"job failed", generation.ErrJobFailed, http.StatusBadGateway},
		{"wrapped", fmt.Errorf("context: %w", stage.ErrLocked), http.StatusLocked},
		{"job error type", &generation.JobError{JobID: "j", Message: "boom"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorStatus(tc.err))
		})
	}
}
