package record

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Engine runs a dedup pass for one record
type Engine interface {
	Process(ctx context.Context, id string) (dedup.Outcome, error)
}

// Handler serves record routes
type Handler struct {
	store  store.Store
	engine Engine
}

// NewHandler creates a record route handler
func NewHandler(st store.Store, engine Engine) *Handler {
	return &Handler{store: st, engine: engine}
}

// Register registers record routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id", h.GetRecord)
	g.POST("/:id/dedup", h.DedupRecord)
}

// RecordResponse is a record without its payload
type RecordResponse struct {
	ID           string    `json:"id"`
	SourceID     string    `json:"source_id"`
	Format       string    `json:"format"`
	Deleted      bool      `json:"deleted"`
	UpdateNeeded bool      `json:"update_needed"`
	HostRecordID string    `json:"host_record_id,omitempty"`
	LinkingID    string    `json:"linking_id,omitempty"`
	TitleKeys    []string  `json:"title_keys"`
	ISBNKeys     []string  `json:"isbn_keys"`
	IDKeys       []string  `json:"id_keys"`
	DedupID      string    `json:"dedup_id,omitempty"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

func toResponse(rec *models.Record) RecordResponse {
	return RecordResponse{
		ID:           rec.ID,
		SourceID:     rec.SourceID,
		Format:       rec.Format,
		Deleted:      rec.Deleted,
		UpdateNeeded: rec.UpdateNeeded,
		HostRecordID: rec.HostRecordID,
		LinkingID:    rec.LinkingID,
		TitleKeys:    orEmpty(rec.TitleKeys),
		ISBNKeys:     orEmpty(rec.ISBNKeys),
		IDKeys:       orEmpty(rec.IDKeys),
		DedupID:      rec.DedupID,
		Created:      rec.Created,
		Updated:      rec.Updated,
	}
}

func orEmpty(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

// DedupResponse reports the outcome of an on-demand dedup pass
type DedupResponse struct {
	RecordID string        `json:"record_id"`
	Outcome  dedup.Outcome `json:"outcome"`
	DedupID  string        `json:"dedup_id,omitempty"`
}

func (h *Handler) getRecord(ctx context.Context, id string) (*models.Record, error) {
	rec, err := h.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return rec, nil
}

// GetRecord gets a record by ID
func (h *Handler) GetRecord(c echo.Context) error {
	rec, err := h.getRecord(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponse(rec))
}

// DedupRecord runs a dedup pass for the record right away
func (h *Handler) DedupRecord(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if _, err := h.getRecord(ctx, id); err != nil {
		return err
	}

	outcome, err := h.engine.Process(ctx, id)
	if err != nil {
		return err
	}

	rec, err := h.getRecord(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DedupResponse{RecordID: id, Outcome: outcome, DedupID: rec.DedupID})
}
