package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// Publisher sends analysis records to the configured topic.
type Publisher struct {
	client Client
	topic  string
	log    logger.Logger
}

// NewPublisher creates a Publisher on client.
func NewPublisher(client Client, topic string, log logger.Logger) *Publisher {
	if topic == "" {
		topic = DefaultConfig().Topic
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Publisher{client: client, topic: topic, log: log}
}

// PublishRecord publishes rec. A record with logID 0 was not persisted.
func (p *Publisher) PublishRecord(ctx context.Context, logID uint, rec *classifier.Record) error {
	payload, err := json.Marshal(NewAnalysisEventDTO(logID, rec))
	if err != nil {
		return fmt.Errorf("marshal analysis event: %w", err)
	}
	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		return err
	}
	p.log.Debug("analysis record published",
		logger.String("topic", p.topic),
		logger.Uint("log_id", logID))
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}
