package mqtt

import (
	"context"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
	"github.com/tphakala/image-analyzer/internal/observability/metrics"
)

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.NewStd("not connected to MQTT broker")

// client implements Client on top of paho.
type client struct {
	config  Config
	metrics *metrics.MQTTMetrics
	log     logger.Logger

	// newPaho builds the underlying client; replaced in tests
	newPaho func(*paho.ClientOptions) paho.Client

	mu       sync.Mutex
	internal paho.Client
}

// ClientOption configures a client.
type ClientOption func(*client)

// WithMetrics attaches connection and publish metrics.
func WithMetrics(m *metrics.MQTTMetrics) ClientOption {
	return func(c *client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *client) { c.log = l }
}

// NewClient creates an MQTT client. It does not connect.
func NewClient(cfg Config, opts ...ClientOption) (Client, error) {
	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker is required").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	u, err := url.Parse(cfg.Broker)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid broker URL %q", cfg.Broker).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	def := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = def.DisconnectTimeout
	}

	c := &client{
		config:  cfg,
		log:     logger.NewSlogLogger(nil, logger.LogLevelInfo, nil),
		newPaho: paho.NewClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect establishes the broker connection. paho reconnects on its own afterwards.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internal != nil && c.internal.IsConnected() {
		return nil
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internal = c.newPaho(opts)

	if err := waitToken(ctx, c.internal.Connect(), c.config.ConnectTimeout); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("broker", c.config.Broker).
			Build()
	}
	c.updateConnectionStatus(true)
	return nil
}

// Publish sends payload to topic with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	internal := c.internal
	c.mu.Unlock()

	start := time.Now()
	if internal == nil || !internal.IsConnected() {
		c.recordPublish(0, 0, ErrNotConnected)
		return ErrNotConnected
	}

	err := waitToken(ctx, internal.Publish(topic, 0, c.config.Retain, payload), c.config.PublishTimeout)
	c.recordPublish(len(payload), time.Since(start), err)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("topic", topic).
			Build()
	}
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internal != nil && c.internal.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internal == nil {
		return
	}
	c.internal.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internal = nil
	c.updateConnectionStatus(false)
}

func (c *client) onConnect(paho.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.updateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", c.config.Broker),
		logger.Error(err))
	c.updateConnectionStatus(false)
}

func (c *client) updateConnectionStatus(connected bool) {
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(connected)
	}
}

func (c *client) recordPublish(size int, latency time.Duration, err error) {
	if c.metrics != nil {
		c.metrics.RecordPublish(size, latency, err)
	}
}

// waitToken waits for token completion, ctx or timeout, whichever comes first.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.NewStd("mqtt operation timed out")
	}
}
