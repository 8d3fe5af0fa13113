package model

import (
	"time"

	"gorm.io/gorm"
)

// Item represents a single SKU inside a project. ProductCode is the
// user-supplied natural key used by bulk import/export; it is unique per
// project and must stay non-empty once set.
type Item struct {
	ID             uint           `json:"id" gorm:"primarykey"`
	ProjectID      uint           `json:"project_id" gorm:"index;not null;uniqueIndex:idx_items_project_code"`
	ProductCode    string         `json:"product_code" gorm:"type:varchar(100);not null;uniqueIndex:idx_items_project_code"`
	Name           string         `json:"name" gorm:"type:varchar(255)"`
	Description    string         `json:"description" gorm:"type:text"`
	Category       string         `json:"category" gorm:"type:varchar(255)"`
	TargetAudience string         `json:"target_audience" gorm:"type:varchar(255)"`
	Tone           string         `json:"tone" gorm:"type:varchar(100)"`
	Notes          string         `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Keyword is one entry of an Item's multi-valued keywords collection
type Keyword struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ItemID    uint      `json:"item_id" gorm:"index;not null"`
	Word      string    `json:"word" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is one entry of an Item's multi-valued customer-questions collection
type Question struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ItemID    uint      `json:"item_id" gorm:"index;not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Attribute is a custom per-project column declared by the user or created
// implicitly during import when an unknown header is seen
type Attribute struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ProjectID uint      `json:"project_id" gorm:"index;not null;uniqueIndex:idx_attributes_project_name"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_attributes_project_name"`
	CreatedAt time.Time `json:"created_at"`
}

// AttributeValue holds one Item's value for a project Attribute
type AttributeValue struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ItemID      uint      `json:"item_id" gorm:"index;not null;uniqueIndex:idx_attr_values_item_attr"`
	AttributeID uint      `json:"attribute_id" gorm:"not null;uniqueIndex:idx_attr_values_item_attr"`
	Value       string    `json:"value" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
