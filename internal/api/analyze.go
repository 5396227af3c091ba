package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/analysis"
	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/errors"
)

const msgImageRequired = "image_data or image_path is required"

// AnalyzeRequest is the form or JSON body of POST /api/analyze/.
type AnalyzeRequest struct {
	ImageData string `json:"image_data" form:"image_data"`
	ImagePath string `json:"image_path" form:"image_path"`
}

// AnalyzeResult is the classification part of AnalyzeResponse.
type AnalyzeResult struct {
	Class            *uint    `json:"class,omitempty"`
	ClassName        string   `json:"class_name,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	FailureReason    string   `json:"failure_reason,omitempty"`
	Provider         string   `json:"provider,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

// AnalyzeResponse is returned for every completed analysis.
type AnalyzeResponse struct {
	ID      uint          `json:"id"`
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Result  AnalyzeResult `json:"result"`
}

// Analyze classifies an uploaded, inline or referenced image.
func (c *Controller) Analyze(ctx echo.Context) error {
	ref, in, err := c.readImageInput(ctx)
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	res, err := c.analysis.Analyze(ctx.Request().Context(), ref, in)
	switch {
	case errors.Is(err, analysis.ErrReferenceTooLong):
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		return c.HandleError(ctx, err, "analysis timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		return c.HandleError(ctx, err, "request cancelled", http.StatusServiceUnavailable)
	case errors.Is(err, classifier.ErrStorage):
		return c.HandleError(ctx, err, "Database error", http.StatusInternalServerError)
	case err != nil:
		return c.HandleError(ctx, err, "analysis failed", http.StatusInternalServerError)
	}

	out := res.Record.Outcome
	resp := AnalyzeResponse{
		ID:      res.LogID,
		Success: out.Succeeded,
		Message: out.Message,
		Result: AnalyzeResult{
			FailureReason:    string(out.Reason),
			Provider:         string(out.Provider),
			ProcessingTimeMs: res.Record.ElapsedMillis,
		},
	}
	if out.Succeeded {
		class, confidence := out.LabelID, out.Confidence
		resp.Result.Class = &class
		resp.Result.Confidence = &confidence
		resp.Result.ClassName = out.LabelName
	}
	return ctx.JSON(statusForOutcome(out), resp)
}

// statusForOutcome maps an outcome to the response status.
func statusForOutcome(out classifier.Outcome) int {
	switch out.Reason {
	case classifier.ReasonValidation:
		return http.StatusBadRequest
	case classifier.ReasonBackendUnavailable, classifier.ReasonStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// readImageInput extracts the image from a multipart upload, or from the
// image_data and image_path fields. image_data wins when both are set and
// image_path then only names the record.
func (c *Controller) readImageInput(ctx echo.Context) (string, classifier.ImageInput, error) {
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := ctx.FormFile("image")
		if err == nil {
			data, err := readUpload(fh)
			if err != nil {
				return "", classifier.ImageInput{}, err
			}
			ref := fh.Filename
			if ref == "" {
				ref = classifier.InlineReference
			}
			return ref, classifier.FromBytes(data), nil
		}
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return "", classifier.ImageInput{}, errors.NewStd(classifier.MsgImageTooLarge)
		}
	}

	var req AnalyzeRequest
	if err := ctx.Bind(&req); err != nil {
		return "", classifier.ImageInput{}, errors.NewStd("invalid request body")
	}
	req.ImagePath = strings.TrimSpace(req.ImagePath)

	switch {
	case req.ImageData != "":
		ref := req.ImagePath
		if ref == "" {
			ref = classifier.InlineReference
		}
		return ref, classifier.FromEncoded(req.ImageData), nil
	case req.ImagePath != "":
		return req.ImagePath, classifier.FromLocation(req.ImagePath), nil
	default:
		return "", classifier.ImageInput{}, errors.NewStd(msgImageRequired)
	}
}

// readUpload reads at most one byte past the payload ceiling so oversized
// uploads still fail validation in the classifier.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.NewStd("Image file not readable: " + fh.Filename)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, classifier.MaxPayloadBytes+1))
	if err != nil {
		return nil, errors.NewStd("Image file not readable: " + fh.Filename)
	}
	return data, nil
}
