package mqtt

import (
	"time"

	"github.com/tphakala/image-analyzer/internal/classifier"
)

// AnalysisEventDTO is the JSON payload published for each analysis record.
// Field names are part of the subscriber contract.
type AnalysisEventDTO struct {
	LogID            uint      `json:"logId"`
	ImagePath        string    `json:"imagePath"`
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	FailureReason    string    `json:"failureReason,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Class            *uint     `json:"class,omitempty"`
	ClassName        string    `json:"className,omitempty"`
	Confidence       *float64  `json:"confidence,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	RequestedAt      time.Time `json:"requestedAt"`
}

// NewAnalysisEventDTO builds the payload for rec stored under logID.
func NewAnalysisEventDTO(logID uint, rec *classifier.Record) AnalysisEventDTO {
	out := rec.Outcome
	dto := AnalysisEventDTO{
		LogID:            logID,
		ImagePath:        rec.ImageReference,
		Success:          out.Succeeded,
		Message:          out.Message,
		FailureReason:    string(out.Reason),
		Provider:         string(out.Provider),
		ProcessingTimeMs: rec.ElapsedMillis,
		RequestedAt:      rec.RequestedAt.UTC(),
	}
	if out.Succeeded {
		class, confidence := out.LabelID, out.Confidence
		dto.Class = &class
		dto.Confidence = &confidence
		dto.ClassName = out.LabelName
	}
	return dto
}
