package mockapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// methodNotAllowed is the body returned for anything but POST.
var methodNotAllowed = map[string]string{"error": "Only POST method allowed!"}

// failure mirrors the deployed endpoint, which sends an empty object.
type failure struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	EstimatedData struct{} `json:"estimated_data"`
}

// Handler answers mock analysis requests with synthetic results.
type Handler struct {
	provider *classifier.LocalProvider
	log      logger.Logger
}

// NewHandler creates a Handler drawing results from provider.
func NewHandler(provider *classifier.LocalProvider, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Handler{provider: provider, log: log}
}

// Register mounts the endpoint at / for every method.
func (h *Handler) Register(e *echo.Echo) {
	e.Any("/", h.serve)
}

func (h *Handler) serve(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return c.JSON(http.StatusOK, methodNotAllowed)
	}

	// The body is accepted but not inspected.
	var req classifier.MockRequest
	_ = c.Bind(&req)

	det, err := h.provider.Classify(c.Request().Context(), classifier.Availability{}, nil)
	if err != nil {
		var perr *classifier.ProviderError
		if errors.As(err, &perr) {
			h.log.Debug("synthetic failure", logger.String("image_path", req.ImagePath))
			return c.JSON(http.StatusOK, failure{Message: perr.Message})
		}
		return err
	}

	h.log.Debug("synthetic result",
		logger.String("image_path", req.ImagePath),
		logger.Uint("class", det.ClassID),
		logger.Float64("confidence", det.Score))
	return c.JSON(http.StatusOK, classifier.MockResponse{
		Success: true,
		Message: classifier.SuccessMessage,
		EstimatedData: &classifier.EstimatedData{
			Class:      det.ClassID,
			Confidence: det.Score,
		},
	})
}
