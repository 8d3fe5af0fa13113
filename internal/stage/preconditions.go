package stage

import (
	"fmt"

	"content-service/internal/freshness"
	"content-service/internal/model"
)

// Named precondition predicates. The same predicates gate approvals and
// guard the corresponding record mutations, so the rules cannot drift apart.

// NaturalKeyPresent is the minimum viable record rule for stage A.
func NaturalKeyPresent(item *model.Item) bool {
	return item.ProductCode != ""
}

// SelectionComplete is the stage B rule: exactly the capped number of
// topics selected.
func SelectionComplete(selectedCount int) bool {
	return selectedCount == model.MaxSelectedTopics
}

// SelectionWithinCap is the mutation-time rule: never more than the cap.
func SelectionWithinCap(selectedCount int) bool {
	return selectedCount <= model.MaxSelectedTopics
}

// CheckSelectionCap validates a proposed selected-topic count at mutation
// time. Selecting beyond the cap fails without mutating anything.
func CheckSelectionCap(selectedCount int) error {
	if !SelectionWithinCap(selectedCount) {
		return fmt.Errorf("%w: at most %d topics may be selected, got %d",
			ErrPreconditionFailed, model.MaxSelectedTopics, selectedCount)
	}
	return nil
}

func (m *Machine) checkPrecondition(p *model.Project, target model.Stage) error {
	items, err := m.data.ItemsByProject(p.ID)
	if err != nil {
		return err
	}

	switch target {
	case model.StageAApproved:
		for i := range items {
			if !NaturalKeyPresent(&items[i]) {
				return fmt.Errorf("%w: item %d has an empty product code",
					ErrPreconditionFailed, items[i].ID)
			}
		}

	case model.StageBApproved:
		for i := range items {
			topics, err := m.data.TopicsByItem(items[i].ID)
			if err != nil {
				return err
			}
			if n := model.CountSelected(topics); !SelectionComplete(n) {
				return fmt.Errorf("%w: item %s has %d selected topics, need exactly %d",
					ErrPreconditionFailed, items[i].ProductCode, n, model.MaxSelectedTopics)
			}
		}

	case model.StageCApproved:
		for i := range items {
			topics, err := m.data.TopicsByItem(items[i].ID)
			if err != nil {
				return err
			}
			content, err := m.data.ContentByItem(items[i].ID)
			if err != nil {
				return err
			}
			switch freshness.ContentStatus(&items[i], topics, content) {
			case freshness.Absent:
				return fmt.Errorf("%w: item %s has no generated content",
					ErrPreconditionFailed, items[i].ProductCode)
			case freshness.Stale:
				return fmt.Errorf("%w: generated content for item %s is stale",
					ErrPreconditionFailed, items[i].ProductCode)
			}
		}

	case model.StageApproved:
		// Final approval has no precondition beyond ordering.
	}

	return nil
}
