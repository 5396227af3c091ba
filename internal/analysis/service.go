// Package analysis runs timed classifications and persists their records.
package analysis

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/datastore/entities"
	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/labels"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// defaultPublishTimeout bounds the best-effort publish after persistence.
const defaultPublishTimeout = 5 * time.Second

// ErrReferenceTooLong is returned before any work when the image reference
// does not fit the log's image_path column.
var ErrReferenceTooLong = errors.NewStd(fmt.Sprintf("image_path too long (max %d characters)", entities.MaxImagePathLength))

// NameResolver maps label ids back to names. *labels.Registry implements it.
type NameResolver interface {
	Name(ctx context.Context, id uint) (string, error)
}

// Publisher forwards persisted records to subscribers.
type Publisher interface {
	PublishRecord(ctx context.Context, logID uint, rec *classifier.Record) error
}

// PersistMetrics observes log store writes.
type PersistMetrics interface {
	RecordPersisted(err error)
}

// Result is a persisted analysis.
type Result struct {
	LogID  uint
	Record classifier.Record
}

// LogEntry is a stored record with its label name resolved for display.
// ClassificationName is empty for failures and for ids with no label.
type LogEntry struct {
	*entities.AnalysisLog
	ClassificationName string
}

// Service runs analyses and reads their history.
type Service struct {
	recorder  *classifier.Recorder
	names     NameResolver
	logs      repository.AnalysisLogRepository
	publisher Publisher
	metrics   PersistMetrics
	log       logger.Logger

	publishTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes every persisted record.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPersistMetrics attaches a metrics sink for log writes.
func WithPersistMetrics(m PersistMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithPublishTimeout bounds each publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTimeout = d }
}

// NewService creates a Service.
func NewService(recorder *classifier.Recorder, names NameResolver, logs repository.AnalysisLogRepository, opts ...Option) *Service {
	s := &Service{
		recorder:       recorder,
		names:          names,
		logs:           logs,
		log:            logger.NewSlogLogger(nil, logger.LogLevelInfo, nil),
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze classifies in, appends the record to the log store and publishes it.
// Backend failures produce a successful call with an unsuccessful outcome; the
// error is non-nil when ctx ends first or storage fails.
func (s *Service) Analyze(ctx context.Context, imageReference string, in classifier.ImageInput) (*Result, error) {
	log := s.log.WithContext(ctx)

	if utf8.RuneCountInString(imageReference) > entities.MaxImagePathLength {
		return nil, ErrReferenceTooLong
	}

	rec, err := s.recorder.Run(ctx, imageReference, in)
	if err != nil {
		return nil, err
	}

	entry := newLogEntry(&rec)
	id, err := s.logs.Append(ctx, entry)
	if s.metrics != nil {
		s.metrics.RecordPersisted(err)
	}
	if err != nil {
		log.Error("failed to persist analysis record",
			logger.String("image_path", imageReference),
			logger.Error(err))
		return nil, errors.Join(classifier.ErrStorage, err)
	}

	log.Info("analysis completed",
		logger.Uint("log_id", id),
		logger.Bool("success", rec.Outcome.Succeeded),
		logger.String("provider", string(rec.Outcome.Provider)),
		logger.Int64("elapsed_ms", rec.ElapsedMillis))

	s.publish(ctx, id, &rec)
	return &Result{LogID: id, Record: rec}, nil
}

// publish is best effort; failures are logged and never fail the analysis.
func (s *Service) publish(ctx context.Context, id uint, rec *classifier.Record) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishRecord(pubCtx, id, rec); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish analysis record",
			logger.Uint("log_id", id),
			logger.Error(err))
	}
}

// ResolveName returns the label name for id, or labels.ErrNotFound.
func (s *Service) ResolveName(ctx context.Context, id uint) (string, error) {
	return s.names.Name(ctx, id)
}

// GetLog returns one stored record, or repository.ErrAnalysisLogNotFound.
func (s *Service) GetLog(ctx context.Context, id uint) (*LogEntry, error) {
	entry, err := s.logs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withName(ctx, entry)
}

// ListLogs returns one page of stored records, newest first, and the total count.
func (s *Service) ListLogs(ctx context.Context, filter repository.AnalysisLogFilter) ([]LogEntry, int64, error) {
	entries, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		le, err := s.withName(ctx, e)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *le)
	}
	return out, total, nil
}

func (s *Service) withName(ctx context.Context, e *entities.AnalysisLog) (*LogEntry, error) {
	le := &LogEntry{AnalysisLog: e}
	if e.Classification == nil {
		return le, nil
	}
	name, err := s.names.Name(ctx, *e.Classification)
	switch {
	case errors.Is(err, labels.ErrNotFound):
		// class index with no registered label
	case err != nil:
		return nil, err
	default:
		le.ClassificationName = name
	}
	return le, nil
}

func newLogEntry(rec *classifier.Record) *entities.AnalysisLog {
	out := rec.Outcome
	entry := &entities.AnalysisLog{
		ImagePath:         rec.ImageReference,
		Success:           out.Succeeded,
		Message:           entities.TruncateMessage(out.Message),
		FailureReason:     string(out.Reason),
		RequestTimestamp:  rec.RequestedAt,
		ResponseTimestamp: rec.RespondedAt,
	}
	if out.Succeeded {
		class, confidence := out.LabelID, out.Confidence
		entry.Classification = &class
		entry.Confidence = &confidence
	}
	return entry
}
