package model

import (
	"time"

	"gorm.io/gorm"
)

// Stage is one step of the linear approval pipeline.
type Stage string

const (
	StageDraft     Stage = "draft"
	StageAApproved Stage = "stage_a_approved"
	StageBApproved Stage = "stage_b_approved"
	StageCApproved Stage = "stage_c_approved"
	StageApproved  Stage = "approved"

	// StageLabelArchived is a status label only, never stored in
	// Project.Stage: archiving is an orthogonal suspend flag so that
	// restore recovers the prior stage exactly.
	StageLabelArchived = "archived"
)

// stageOrder maps each pipeline stage to its position. Archived is not a
// pipeline position.
var stageOrder = map[Stage]int{
	StageDraft:     0,
	StageAApproved: 1,
	StageBApproved: 2,
	StageCApproved: 3,
	StageApproved:  4,
}

// ParseStage normalizes a raw stage string. Anything outside the legal set
// falls back to draft.
func ParseStage(raw string) Stage {
	s := Stage(raw)
	if _, ok := stageOrder[s]; ok {
		return s
	}
	return StageDraft
}

// Order returns the stage's position in the pipeline.
func (s Stage) Order() int {
	return stageOrder[s]
}

// AtLeast reports whether the stage is at or past the given stage.
func (s Stage) AtLeast(other Stage) bool {
	return s.Order() >= other.Order()
}

// Project represents one content-production run
type Project struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Stage     Stage          `json:"stage" gorm:"type:varchar(32);not null;default:'draft'"`
	Archived  bool           `json:"archived" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// StageLabel is the status-surface label: "archived" while suspended,
// the pipeline stage otherwise.
func (p *Project) StageLabel() string {
	if p.Archived {
		return StageLabelArchived
	}
	return string(p.Stage)
}
