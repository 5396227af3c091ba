package entities

import (
	"time"
	"unicode/utf8"
)

// Column widths of ai_analysis_log, in characters.
const (
	MaxImagePathLength = 255
	MaxMessageLength   = 255
)

// AnalysisLog records one analysis request and its outcome.
//
// Classification is a weak reference to object_labels.id and is nil on
// failure, as is Confidence. FailureReason is empty on success.
type AnalysisLog struct {
	ID                uint      `gorm:"primaryKey"`
	ImagePath         string    `gorm:"size:255;not null"`
	Success           bool      `gorm:"not null;index"`
	Message           string    `gorm:"size:255"`
	FailureReason     string    `gorm:"size:32"`
	Classification    *uint     `gorm:"index"`
	Confidence        *float64  `gorm:"type:decimal(5,4)"`
	RequestTimestamp  time.Time `gorm:"not null"`
	ResponseTimestamp time.Time `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`
}

// TruncateMessage cuts s to MaxMessageLength characters.
func TruncateMessage(s string) string {
	if utf8.RuneCountInString(s) <= MaxMessageLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxMessageLength])
}

// TableName returns the table name for GORM.
func (AnalysisLog) TableName() string {
	return "ai_analysis_log"
}

// ProcessingTime is the wall time between request and response.
func (l *AnalysisLog) ProcessingTime() time.Duration {
	return l.ResponseTimestamp.Sub(l.RequestTimestamp)
}
