package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/httpclient"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// maxMockResponseBytes bounds how much of a mock response is read
const maxMockResponseBytes = 1 << 20

// MockRequest is the body POSTed to the remote mock endpoint.
type MockRequest struct {
	ImagePath string `json:"image_path"`
	ImageData string `json:"image_data,omitempty"`
}

// MockResponse is the remote mock endpoint's reply.
type MockResponse struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	EstimatedData *EstimatedData `json:"estimated_data,omitempty"`
}

// EstimatedData carries the synthetic class index and confidence.
type EstimatedData struct {
	Class      uint    `json:"class"`
	Confidence float64 `json:"confidence"`
}

// MockAPIProvider posts images to a remote mock analysis endpoint.
type MockAPIProvider struct {
	client  *httpclient.Client
	timeout time.Duration
	log     logger.Logger
}

// NewMockAPIProvider creates a MockAPIProvider. The endpoint comes from
// Availability on each call.
func NewMockAPIProvider(client *httpclient.Client, timeout time.Duration, log logger.Logger) *MockAPIProvider {
	if client == nil {
		client = httpclient.New(nil)
	}
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, elapsed time.Duration, err error) {
		if err != nil || resp == nil {
			return
		}
		log.Debug("mock API responded",
			logger.String("url", req.URL.String()),
			logger.Int("status", resp.StatusCode),
			logger.Duration("elapsed", elapsed))
	})
	return &MockAPIProvider{client: client, timeout: timeout, log: log}
}

// Kind implements Provider.
func (p *MockAPIProvider) Kind() Kind { return KindMock }

// Classify implements Provider.
func (p *MockAPIProvider) Classify(ctx context.Context, av Availability, payload *Payload) (Detection, error) {
	if av.MockEndpoint == "" {
		return Detection{}, unavailable("mock API endpoint not configured", nil)
	}

	body := MockRequest{ImagePath: payload.Source()}
	if payload.Kind == InputBytes || payload.Kind == InputEncoded {
		body.ImageData = base64.StdEncoding.EncodeToString(payload.Data)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.PostJSON(callCtx, av.MockEndpoint, body)
	if err != nil {
		if ctx.Err() != nil {
			return Detection{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Detection{}, timeoutError(fmt.Sprintf("mock API request timed out after %s", p.timeout), err)
		}
		return Detection{}, backendError("API request error: "+err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Detection{}, backendError(fmt.Sprintf("mock API error: status %d", resp.StatusCode), nil)
	}

	var result MockResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMockResponseBytes)).Decode(&result); err != nil {
		if ctx.Err() != nil {
			return Detection{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Detection{}, timeoutError("mock API response timed out", err)
		}
		return Detection{}, backendError("mock API error: invalid response: "+err.Error(), err)
	}

	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "mock API reported failure"
		}
		return Detection{}, backendError(msg, nil)
	}
	if result.EstimatedData == nil || result.EstimatedData.Class == 0 {
		return Detection{}, backendError("mock API error: missing estimated_data", nil)
	}
	if c := result.EstimatedData.Confidence; c < 0 || c > 1 {
		return Detection{}, backendError(fmt.Sprintf("mock API error: confidence %v out of range", c), nil)
	}

	return Detection{
		ClassID: result.EstimatedData.Class,
		Score:   result.EstimatedData.Confidence,
	}, nil
}
