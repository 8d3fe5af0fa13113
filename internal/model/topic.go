package model

import "time"

// MaxSelectedTopics is the hard cap on selected topics per item; stage B
// approval additionally requires the count to be exactly this number.
const MaxSelectedTopics = 5

// Topic is one derived topic candidate for an Item. Selected topics feed
// content generation; the Selected flag is the approval signal for stage B.
type Topic struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ItemID      uint      `json:"item_id" gorm:"index;not null"`
	Index       int       `json:"index" gorm:"not null"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Selected    bool      `json:"selected" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CountSelected returns how many of the given topics are selected
func CountSelected(topics []Topic) int {
	n := 0
	for _, t := range topics {
		if t.Selected {
			n++
		}
	}
	return n
}
