package stage

import (
	"errors"
	"fmt"

	"content-service/internal/model"
)

// Stage-machine errors. Handlers recover these locally and surface a
// user-facing message; they never crash the process.
var (
	// ErrIllegalTransition signals a transition that violates the linear
	// pipeline order (skipping a stage, unapproving a stage already passed).
	ErrIllegalTransition = errors.New("illegal stage transition")

	// ErrLocked signals a mutation attempted on a locked or archived stage.
	ErrLocked = errors.New("stage is locked")

	// ErrPreconditionFailed signals an approval whose stage precondition
	// does not hold, or a topic selection beyond the cap.
	ErrPreconditionFailed = errors.New("stage precondition failed")
)

// ProjectData is the read surface the machine needs to evaluate stage
// preconditions. The gorm-backed store implements it.
type ProjectData interface {
	ItemsByProject(projectID uint) ([]model.Item, error)
	TopicsByItem(itemID uint) ([]model.Topic, error)
	// ContentByItem returns (nil, nil) when the item has no generated
	// content yet; absence is not an error here.
	ContentByItem(itemID uint) (*model.GeneratedContent, error)
}

// Machine validates and executes stage transitions for a project.
type Machine struct {
	data ProjectData
}

// NewMachine returns a stage machine reading precondition inputs from data.
func NewMachine(data ProjectData) *Machine {
	return &Machine{data: data}
}

// Predecessor returns the stage immediately before s in the pipeline.
// The second return is false for draft, which has no predecessor.
func Predecessor(s model.Stage) (model.Stage, bool) {
	switch s {
	case model.StageAApproved:
		return model.StageDraft, true
	case model.StageBApproved:
		return model.StageAApproved, true
	case model.StageCApproved:
		return model.StageBApproved, true
	case model.StageApproved:
		return model.StageCApproved, true
	}
	return "", false
}

// Approve advances the project to target. It is legal only when the project
// currently sits at target's predecessor and the target's precondition
// holds. On any failure the project is left unchanged.
func (m *Machine) Approve(p *model.Project, target model.Stage) error {
	if p.Archived {
		return fmt.Errorf("%w: project is archived", ErrLocked)
	}
	pred, ok := Predecessor(target)
	if !ok {
		return fmt.Errorf("%w: %q is not an approvable stage", ErrIllegalTransition, target)
	}
	if p.Stage != pred {
		return fmt.Errorf("%w: cannot approve %s from %s", ErrIllegalTransition, target, p.Stage)
	}
	if err := m.checkPrecondition(p, target); err != nil {
		return err
	}
	p.Stage = target
	return nil
}

// Unapprove reverts exactly one step. It is legal only when the project is
// currently at target; unapproving a stage already advanced past fails.
func (m *Machine) Unapprove(p *model.Project, target model.Stage) error {
	if p.Archived {
		return fmt.Errorf("%w: project is archived", ErrLocked)
	}
	pred, ok := Predecessor(target)
	if !ok {
		return fmt.Errorf("%w: %q is not an unapprovable stage", ErrIllegalTransition, target)
	}
	if p.Stage != target {
		return fmt.Errorf("%w: cannot unapprove %s while at %s", ErrIllegalTransition, target, p.Stage)
	}
	p.Stage = pred
	return nil
}

// Archive suspends the project. Fully approved projects are terminal and
// cannot be archived.
func Archive(p *model.Project) error {
	if p.Archived {
		return fmt.Errorf("%w: project is already archived", ErrIllegalTransition)
	}
	if p.Stage == model.StageApproved {
		return fmt.Errorf("%w: cannot archive an approved project", ErrIllegalTransition)
	}
	p.Archived = true
	return nil
}

// Restore clears the suspend flag. The pipeline stage is untouched.
func Restore(p *model.Project) error {
	if !p.Archived {
		return fmt.Errorf("%w: project is not archived", ErrIllegalTransition)
	}
	p.Archived = false
	return nil
}

// CanEnter reports whether the screen for the given stage is usable:
// a stage's screen opens once the previous stage has been approved.
func CanEnter(p *model.Project, s model.Stage) bool {
	pred, ok := Predecessor(s)
	if !ok {
		return true
	}
	return p.Stage.AtLeast(pred)
}

// CheckMutable rejects any mutation on an archived project.
func CheckMutable(p *model.Project) error {
	if p.Archived {
		return fmt.Errorf("%w: project is archived", ErrLocked)
	}
	return nil
}

// CheckStageAEditable gates all stage-A record mutations (item fields,
// keywords, questions, attribute values, bulk import). Once the project is
// past draft, the caller must unapprove stage A before editing. This is a
// blanket rule, not per-field.
func CheckStageAEditable(p *model.Project) error {
	if err := CheckMutable(p); err != nil {
		return err
	}
	if p.Stage != model.StageDraft {
		return fmt.Errorf("%w: records are locked at %s; unapprove %s first",
			ErrLocked, p.Stage, model.StageAApproved)
	}
	return nil
}

// CheckStageEnter rejects mutating calls against a stage whose screen is
// not yet reachable.
func CheckStageEnter(p *model.Project, s model.Stage) error {
	if err := CheckMutable(p); err != nil {
		return err
	}
	if !CanEnter(p, s) {
		return fmt.Errorf("%w: stage %s is not reachable at %s", ErrLocked, s, p.Stage)
	}
	return nil
}
