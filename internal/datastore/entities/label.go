package entities

import "time"

// Label is a normalized object name with a stable integer identity.
// Rows are never updated or deleted.
type Label struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:200;not null;uniqueIndex:idx_object_labels_name"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Label) TableName() string {
	return "object_labels"
}
