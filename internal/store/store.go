// Package store is the persistence surface of the service. The workflow
// components consume narrow interfaces of it; this gorm implementation is
// the only place that knows the schema. Record writes are last-writer-wins;
// concurrent edits to the same record are an accepted race.
package store

import (
	"errors"
	"fmt"
	"time"

	"content-service/internal/model"
	"content-service/internal/stage"
	"content-service/prometheus"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound signals a lookup miss, distinguishable from transport and
// database errors. On a write path it is terminal for that operation and is
// not retried.
var ErrNotFound = errors.New("record not found")

// Store wraps the gorm handle with the service's record operations.
type Store struct {
	db *gorm.DB
}

// New creates a Store on the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// touchItem bumps the item's updated_at so freshness detection sees edits
// to the item's child collections as item changes.
func touchItem(tx *gorm.DB, itemID uint) error {
	return tx.Model(&model.Item{}).Where("id = ?", itemID).
		Update("updated_at", time.Now()).Error
}

// --- Projects ---

func (s *Store) Project(id uint) (*model.Project, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var p model.Project
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

func (s *Store) Projects() ([]model.Project, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var projects []model.Project
	if err := s.db.Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Store) CreateProject(p *model.Project) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return s.db.Create(p).Error
}

func (s *Store) SaveProject(p *model.Project) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return wrapErr(s.db.Save(p).Error)
}

func (s *Store) DeleteProject(id uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	res := s.db.Delete(&model.Project{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Items ---

func (s *Store) ItemsByProject(projectID uint) ([]model.Item, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var items []model.Item
	if err := s.db.Where("project_id = ?", projectID).Order("product_code").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) Item(id uint) (*model.Item, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var item model.Item
	if err := s.db.First(&item, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &item, nil
}

// ItemByNaturalKey resolves an item by its product code within a project.
func (s *Store) ItemByNaturalKey(projectID uint, productCode string) (*model.Item, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var item model.Item
	err := s.db.Where("project_id = ? AND product_code = ?", projectID, productCode).
		First(&item).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &item, nil
}

func (s *Store) CreateItem(item *model.Item) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return s.db.Create(item).Error
}

func (s *Store) SaveItem(item *model.Item) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return wrapErr(s.db.Save(item).Error)
}

func (s *Store) DeleteItem(id uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Item{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for _, child := range []any{&model.Keyword{}, &model.Question{}, &model.AttributeValue{}, &model.Topic{}, &model.GeneratedContent{}} {
			if err := tx.Where("item_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Keywords and questions ---

func (s *Store) KeywordsByItem(itemID uint) ([]model.Keyword, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var keywords []model.Keyword
	if err := s.db.Where("item_id = ?", itemID).Order("id").Find(&keywords).Error; err != nil {
		return nil, err
	}
	return keywords, nil
}

// ReplaceKeywords swaps the item's whole keyword collection. Entries not in
// words are deleted, never merged.
func (s *Store) ReplaceKeywords(itemID uint, words []string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&model.Keyword{}).Error; err != nil {
			return err
		}
		for _, w := range words {
			if err := tx.Create(&model.Keyword{ItemID: itemID, Word: w}).Error; err != nil {
				return err
			}
		}
		return touchItem(tx, itemID)
	})
}

func (s *Store) QuestionsByItem(itemID uint) ([]model.Question, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var questions []model.Question
	if err := s.db.Where("item_id = ?", itemID).Order("id").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// ReplaceQuestions swaps the item's whole question collection.
func (s *Store) ReplaceQuestions(itemID uint, texts []string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		for _, t := range texts {
			if err := tx.Create(&model.Question{ItemID: itemID, Text: t}).Error; err != nil {
				return err
			}
		}
		return touchItem(tx, itemID)
	})
}

// --- Attributes ---

func (s *Store) AttributesByProject(projectID uint) ([]model.Attribute, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var attrs []model.Attribute
	if err := s.db.Where("project_id = ?", projectID).Order("id").Find(&attrs).Error; err != nil {
		return nil, err
	}
	return attrs, nil
}

func (s *Store) CreateAttribute(attr *model.Attribute) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return s.db.Create(attr).Error
}

func (s *Store) AttributeValuesByItem(itemID uint) ([]model.AttributeValue, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var values []model.AttributeValue
	if err := s.db.Where("item_id = ?", itemID).Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// SetAttributeValue upserts one item's value for an attribute. An empty
// value clears the stored cell rather than deleting the row.
func (s *Store) SetAttributeValue(itemID, attributeID uint, value string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.AttributeValue
		err := tx.Where("item_id = ? AND attribute_id = ?", itemID, attributeID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&model.AttributeValue{
				ItemID:      itemID,
				AttributeID: attributeID,
				Value:       value,
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&existing).Update("value", value).Error; err != nil {
				return err
			}
		}
		return touchItem(tx, itemID)
	})
}

// --- Topics ---

func (s *Store) TopicsByItem(itemID uint) ([]model.Topic, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var topics []model.Topic
	if err := s.db.Where("item_id = ?", itemID).Order(`"index"`).Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// ReplaceTopics swaps the item's topic candidates, e.g. after a topic
// generation job. Previous topics and their selections are discarded.
func (s *Store) ReplaceTopics(itemID uint, topics []model.Topic) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&model.Topic{}).Error; err != nil {
			return err
		}
		for i := range topics {
			topics[i].ItemID = itemID
			if err := tx.Create(&topics[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetTopicSelection replaces the item's selected-topic set. The selection
// cap is enforced here at the data layer, not only in the screens, so a
// sixth selection fails without mutating state.
func (s *Store) SetTopicSelection(itemID uint, selectedIDs []uint) error {
	if err := stage.CheckSelectionCap(len(selectedIDs)); err != nil {
		return err
	}
	defer prometheus.TrackDBOperation("update")(time.Now())
	selected := make(map[uint]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var topics []model.Topic
		if err := tx.Where("item_id = ?", itemID).Find(&topics).Error; err != nil {
			return err
		}
		known := make(map[uint]bool, len(topics))
		for _, t := range topics {
			known[t.ID] = true
		}
		for _, id := range selectedIDs {
			if !known[id] {
				return fmt.Errorf("%w: topic %d does not belong to item %d", ErrNotFound, id, itemID)
			}
		}
		for _, t := range topics {
			want := selected[t.ID]
			if t.Selected == want {
				continue
			}
			if err := tx.Model(&model.Topic{}).Where("id = ?", t.ID).
				Update("selected", want).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Generated content ---

// ContentByItem returns the item's generated content, or (nil, nil) when
// none exists yet. Absence is a normal state here, not an error: the
// freshness detector distinguishes absent from stale.
func (s *Store) ContentByItem(itemID uint) (*model.GeneratedContent, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var content model.GeneratedContent
	err := s.db.Where("item_id = ?", itemID).First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// UpsertContent writes the item's single live generated-content record.
func (s *Store) UpsertContent(itemID uint, fields datatypes.JSONMap) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.GeneratedContent
		err := tx.Where("item_id = ?", itemID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&model.GeneratedContent{ItemID: itemID, Fields: fields}).Error
		case err != nil:
			return err
		default:
			return tx.Model(&existing).Update("fields", fields).Error
		}
	})
}

// --- Generation jobs ---

func (s *Store) CreateJob(job *model.GenerationJob) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return s.db.Create(job).Error
}

func (s *Store) Job(id uint) (*model.GenerationJob, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var job model.GenerationJob
	if err := s.db.First(&job, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &job, nil
}

func (s *Store) JobsByProject(projectID uint) ([]model.GenerationJob, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	var jobs []model.GenerationJob
	if err := s.db.Where("project_id = ?", projectID).Order("id desc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateJobStatus advances the audit record's status. Terminal statuses are
// final; any attempt to move a finished job is refused.
func (s *Store) UpdateJobStatus(id uint, status model.JobStatus, errorMessage string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.Transaction(func(tx *gorm.DB) error {
		var job model.GenerationJob
		if err := tx.First(&job, id).Error; err != nil {
			return wrapErr(err)
		}
		if job.Status.Terminal() {
			return fmt.Errorf("job %d is already %s", id, job.Status)
		}
		return tx.Model(&job).Updates(map[string]any{
			"status":        status,
			"error_message": errorMessage,
		}).Error
	})
}
