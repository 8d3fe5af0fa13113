package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"content-service/internal/generation"
	"content-service/internal/model"
	"content-service/pkg/logger"
	"content-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// runJob submits a generation request, records the local audit row, and
// polls the job to completion on the request context. Navigating away
// cancels the context, which abandons the poll loop; the remote job itself
// keeps running.
func runJob(c echo.Context, log *zap.Logger, projectID uint, req generation.Request) (*model.GenerationJob, *generation.StatusResponse, error) {
	ctx := c.Request().Context()
	kind := string(req.Kind)

	remoteID, err := orchestrator.Submit(ctx, req)
	if err != nil {
		log.Error("Job submission failed", zap.String("kind", kind), zap.Error(err))
		prometheus.RecordGenerationJob(kind, "submission_failed")
		return nil, nil, err
	}

	targets, _ := json.Marshal(req.TargetIDs)
	job := &model.GenerationJob{
		RemoteID:  remoteID,
		ProjectID: projectID,
		Kind:      req.Kind,
		TargetIDs: datatypes.JSON(targets),
		Status:    model.JobStatusQueued,
	}
	if err := records.CreateJob(job); err != nil {
		log.Error("Failed to record job", zap.String("remote_id", remoteID), zap.Error(err))
		return nil, nil, err
	}

	status, err := orchestrator.AwaitCompletion(ctx, remoteID)
	switch {
	case err == nil:
		prometheus.RecordGenerationJob(kind, "succeeded")
		if uerr := records.UpdateJobStatus(job.ID, model.JobStatusSucceeded, ""); uerr != nil {
			log.Warn("Failed to finalize job record", zap.Uint("job_id", job.ID), zap.Error(uerr))
		}
		job.Status = model.JobStatusSucceeded
		return job, status, nil

	case errors.Is(err, generation.ErrJobFailed):
		prometheus.RecordGenerationJob(kind, "failed")
		var jobErr *generation.JobError
		message := err.Error()
		if errors.As(err, &jobErr) {
			message = jobErr.Message
		}
		if uerr := records.UpdateJobStatus(job.ID, model.JobStatusFailed, message); uerr != nil {
			log.Warn("Failed to finalize job record", zap.Uint("job_id", job.ID), zap.Error(uerr))
		}
		return job, nil, err

	case errors.Is(err, generation.ErrJobTimeout):
		// Client-observation timeout only; the remote job is still live,
		// so the audit row stays non-terminal.
		prometheus.RecordGenerationJob(kind, "timeout")
		if uerr := records.UpdateJobStatus(job.ID, model.JobStatusRunning, ""); uerr != nil {
			log.Warn("Failed to mark job running", zap.Uint("job_id", job.ID), zap.Error(uerr))
		}
		return job, nil, err

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		prometheus.RecordGenerationJob(kind, "abandoned")
		return job, nil, err

	default:
		prometheus.RecordGenerationJob(kind, "error")
		return job, nil, err
	}
}

// GetJob handles retrieving one local job audit record
func GetJob(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid job id"})
	}

	job, err := records.Job(id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// ListJobs handles retrieving a project's job audit records
func ListJobs(c echo.Context) error {
	log := logger.FromContext(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	jobs, err := records.JobsByProject(projectID)
	if err != nil {
		log.Error("Failed to list jobs", zap.Uint("project_id", projectID), zap.Error(err))
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}
