package classifier

import (
	"context"
	"time"
)

// Record is one timed analysis, handed to persistence by the caller.
type Record struct {
	ImageReference string
	Outcome        Outcome
	RequestedAt    time.Time
	RespondedAt    time.Time
	ElapsedMillis  int64
}

// Recorder times dispatches. The measured span includes label resolution.
type Recorder struct {
	dispatcher *Dispatcher
	now        func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder around d.
func NewRecorder(d *Dispatcher, opts ...RecorderOption) *Recorder {
	r := &Recorder{dispatcher: d, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run dispatches in and returns the timed record. No record is produced
// when ctx ends before the dispatch completes or the label store fails.
func (r *Recorder) Run(ctx context.Context, imageReference string, in ImageInput) (Record, error) {
	requestedAt := r.now()
	out, err := r.dispatcher.Dispatch(ctx, in)
	respondedAt := r.now()
	if err != nil {
		return Record{}, err
	}

	return Record{
		ImageReference: imageReference,
		Outcome:        out,
		RequestedAt:    requestedAt,
		RespondedAt:    respondedAt,
		ElapsedMillis:  elapsedMillis(requestedAt, respondedAt),
	}, nil
}

// elapsedMillis truncates to whole milliseconds and never goes negative.
func elapsedMillis(from, to time.Time) int64 {
	ms := to.Sub(from).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
