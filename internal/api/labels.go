package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/errors"
)

// LabelResponse is one registered object label.
type LabelResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ListLabels returns every registered label ordered by id.
func (c *Controller) ListLabels(ctx echo.Context) error {
	labels, err := c.labels.List(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to retrieve labels", http.StatusInternalServerError)
	}

	out := make([]LabelResponse, 0, len(labels))
	for _, l := range labels {
		out = append(out, LabelResponse{ID: l.ID, Name: l.Name})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    out,
		"count":   len(out),
	})
}

// GetLabel returns one label by id.
func (c *Controller) GetLabel(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid label ID", http.StatusBadRequest)
	}

	label, err := c.labels.GetByID(ctx.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrLabelNotFound):
		return c.HandleError(ctx, err, "Label not found", http.StatusNotFound)
	case err != nil:
		return c.HandleError(ctx, err, "Failed to retrieve label", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    LabelResponse{ID: label.ID, Name: label.Name},
	})
}
