package classifier

import (
	"fmt"
	"math"
)

// FailureReason classifies an unsuccessful dispatch.
type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonValidation         FailureReason = "validation"
	ReasonBackendUnavailable FailureReason = "backend_unavailable"
	ReasonNoDetection        FailureReason = "no_detection"
	ReasonBackendError       FailureReason = "backend_error"
	ReasonTimeout            FailureReason = "timeout"
	ReasonStorage            FailureReason = "storage"
)

// Transient reports whether retrying the same input may succeed.
func (r FailureReason) Transient() bool {
	return r == ReasonTimeout
}

// MetricLabel is the value used for the outcome label in metrics.
func (r FailureReason) MetricLabel() string {
	if r == ReasonNone {
		return "success"
	}
	return string(r)
}

// Outcome is the normalized result of one dispatch. A successful outcome
// carries LabelID and Confidence; a failed one carries Reason and neither.
type Outcome struct {
	Succeeded  bool
	Reason     FailureReason
	Message    string
	LabelID    uint
	LabelName  string // empty when the backend reported only a class index
	Confidence float64
	Provider   Kind
}

// SuccessMessage is the message attached to successful outcomes.
const SuccessMessage = "success"

func succeeded(provider Kind, labelID uint, name string, confidence float64) Outcome {
	return Outcome{
		Succeeded:  true,
		Message:    SuccessMessage,
		LabelID:    labelID,
		LabelName:  name,
		Confidence: roundConfidence(confidence),
		Provider:   provider,
	}
}

func failed(provider Kind, reason FailureReason, message string) Outcome {
	return Outcome{
		Reason:   reason,
		Message:  message,
		Provider: provider,
	}
}

// roundConfidence rounds to the 4 decimals stored by the log table.
func roundConfidence(c float64) float64 {
	return math.Round(c*10000) / 10000
}

// Detection is a provider's top result before label resolution.
// Name is set by backends that return object names; ClassID by backends
// that return a class index.
type Detection struct {
	Name    string
	ClassID uint
	Score   float64
}

// ProviderError is a failure in the shared taxonomy raised by a provider.
type ProviderError struct {
	Reason  FailureReason
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func noDetection(message string) *ProviderError {
	return &ProviderError{Reason: ReasonNoDetection, Message: message}
}

func backendError(message string, err error) *ProviderError {
	return &ProviderError{Reason: ReasonBackendError, Message: message, Err: err}
}

func timeoutError(message string, err error) *ProviderError {
	return &ProviderError{Reason: ReasonTimeout, Message: message, Err: err}
}

func unavailable(message string, err error) *ProviderError {
	return &ProviderError{Reason: ReasonBackendUnavailable, Message: message, Err: err}
}
