package classifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/vision/v1"

	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
)

const (
	// DefaultBackendTimeout bounds each network backend call.
	DefaultBackendTimeout = 30 * time.Second

	visionFeature    = "OBJECT_LOCALIZATION"
	visionMaxResults = 10
)

// VisionConfig configures VisionProvider.
type VisionConfig struct {
	Endpoint  string        // REST endpoint override
	Timeout   time.Duration // per-call bound, DefaultBackendTimeout when zero
	RateLimit float64       // requests per second, 0 disables
	Burst     int

	// HTTPClient replaces credential-file authentication
	HTTPClient *http.Client
}

// VisionProvider classifies images with Cloud Vision object localization.
type VisionProvider struct {
	cfg     VisionConfig
	limiter *rate.Limiter
	log     logger.Logger

	mu          sync.Mutex
	svc         *vision.Service
	credentials string // credentials file svc was built with
}

// NewVisionProvider creates a VisionProvider. The API client is built on first use.
func NewVisionProvider(cfg VisionConfig, log logger.Logger) *VisionProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBackendTimeout
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	p := &VisionProvider{cfg: cfg, log: log}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return p
}

// Kind implements Provider.
func (p *VisionProvider) Kind() Kind { return KindVision }

var errNoCredentials = errors.NewStd("no credentials file")

// service returns a client for credentials, rebuilding it when they change.
func (p *VisionProvider) service(ctx context.Context, credentials string) (*vision.Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.svc != nil && p.credentials == credentials {
		return p.svc, nil
	}

	var opts []option.ClientOption
	if p.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(p.cfg.HTTPClient))
	} else {
		if credentials == "" {
			return nil, errNoCredentials
		}
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	if p.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.cfg.Endpoint))
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.svc = svc
	p.credentials = credentials
	return svc, nil
}

// Classify implements Provider.
func (p *VisionProvider) Classify(ctx context.Context, av Availability, payload *Payload) (Detection, error) {
	svc, err := p.service(ctx, av.VisionCredentials)
	if err != nil {
		message := "Google Cloud credentials not configured"
		if !errors.Is(err, errNoCredentials) {
			message = "Google Cloud credentials unusable: " + err.Error()
		}
		return Detection{}, unavailable(message,
			errors.New(err).
				Component("classifier.vision").
				Category(errors.CategoryConfiguration).
				Build())
	}

	img, err := visionImage(payload)
	if err != nil {
		return Detection{}, backendError("Vision API Error: "+err.Error(), err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return Detection{}, ctx.Err()
			}
			return Detection{}, timeoutError("Vision API rate limit wait exceeded deadline", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    img,
			Features: []*vision.Feature{{Type: visionFeature, MaxResults: visionMaxResults}},
		}},
	}

	start := time.Now()
	resp, err := svc.Images.Annotate(req).Context(callCtx).Do()
	if err != nil {
		return Detection{}, p.callError(ctx, callCtx, err)
	}
	p.log.Debug("vision response received",
		logger.Duration("elapsed", time.Since(start)),
		logger.String("format", payload.Format))

	if len(resp.Responses) == 0 {
		return Detection{}, backendError("Vision API Error: empty response", nil)
	}
	result := resp.Responses[0]
	if result.Error != nil && result.Error.Message != "" {
		return Detection{}, backendError("Vision API Error: "+result.Error.Message, nil)
	}

	objects := result.LocalizedObjectAnnotations
	if len(objects) == 0 {
		return Detection{}, noDetection("No objects detected")
	}
	scores := make([]float64, len(objects))
	for i, o := range objects {
		scores[i] = o.Score
	}
	best := objects[pickTop(scores)]
	return Detection{Name: best.Name, Score: best.Score}, nil
}

func (p *VisionProvider) callError(ctx, callCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return timeoutError(fmt.Sprintf("Vision API request timed out after %s", p.cfg.Timeout), err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return backendError("Vision API Error: "+msg, err)
	}
	return backendError("Vision API Error: "+err.Error(), err)
}

func visionImage(payload *Payload) (*vision.Image, error) {
	if payload.Kind == InputReference {
		return &vision.Image{Source: &vision.ImageSource{ImageUri: payload.URI}}, nil
	}
	data, err := payload.Bytes()
	if err != nil {
		return nil, err
	}
	return &vision.Image{Content: base64.StdEncoding.EncodeToString(data)}, nil
}
