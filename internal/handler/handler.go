package handler

import (
	"errors"
	"net/http"

	"content-service/internal/generation"
	"content-service/internal/stage"
	"content-service/internal/store"

	"github.com/labstack/echo/v4"
)

// Package-level collaborators, wired once from main.
var (
	records      *store.Store
	machine      *stage.Machine
	orchestrator *generation.Orchestrator
	tracker      *generation.Tracker
)

// Init wires the handler package's collaborators.
func Init(s *store.Store, m *stage.Machine, o *generation.Orchestrator, t *generation.Tracker) {
	records = s
	machine = m
	orchestrator = o
	tracker = t
}

// errorStatus maps workflow errors onto HTTP statuses. Stage-machine
// errors are recoverable states, not server faults.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, stage.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, stage.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, stage.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrJobTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, generation.ErrSubmissionFailed), errors.Is(err, generation.ErrJobFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), echo.Map{"error": err.Error()})
}
