package model

import (
	"time"

	"gorm.io/datatypes"
)

// GeneratedContent is the final derived artifact for an Item. At most one
// live record exists per Item; regeneration overwrites it in place so the
// updated_at stamp reflects the latest generation.
type GeneratedContent struct {
	ID        uint              `json:"id" gorm:"primarykey"`
	ItemID    uint              `json:"item_id" gorm:"uniqueIndex;not null"`
	Fields    datatypes.JSONMap `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
