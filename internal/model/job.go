package model

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus mirrors the remote generation service's job lifecycle.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final. Terminal statuses are
// monotonic: a job never moves back to queued or running.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// JobKind identifies what a generation job produces.
type JobKind string

const (
	JobKindTopics  JobKind = "topics"
	JobKindContent JobKind = "content"
)

// GenerationJob is the local audit record for a remote generation job.
// RemoteID is the gateway's job identifier used for status polling.
type GenerationJob struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	RemoteID     string         `json:"remote_id" gorm:"type:varchar(100);index;not null"`
	ProjectID    uint           `json:"project_id" gorm:"index;not null"`
	Kind         JobKind        `json:"kind" gorm:"type:varchar(32);not null"`
	TargetIDs    datatypes.JSON `json:"target_ids"`
	Status       JobStatus      `json:"status" gorm:"type:varchar(32);not null;default:'queued'"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
