package group

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Engine checks and repairs one dedup group
type Engine interface {
	CheckDedupRecord(ctx context.Context, group *models.DedupGroup) ([]string, error)
}

// Handler serves dedup group routes
type Handler struct {
	store  store.Store
	engine Engine
}

// NewHandler creates a group route handler
func NewHandler(st store.Store, engine Engine) *Handler {
	return &Handler{store: st, engine: engine}
}

// Register registers dedup group routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.FindGroup)
	g.GET("/:id", h.GetGroup)
	g.POST("/:id/check", h.CheckGroup)
}

// CheckResponse lists the repairs made by an integrity check
type CheckResponse struct {
	Group   *models.DedupGroup `json:"group"`
	Removed []string           `json:"removed"`
}

func (h *Handler) getGroup(ctx context.Context, id string) (*models.DedupGroup, error) {
	group, err := h.store.GetDedup(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "dedup group not found")
	}
	if group.IDs == nil {
		group.IDs = []string{}
	}
	return group, nil
}

// GetGroup gets a dedup group by ID, deleted or not
func (h *Handler) GetGroup(c echo.Context) error {
	group, err := h.getGroup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, group)
}

// FindGroup finds the live group holding the record given by ?record_id=
func (h *Handler) FindGroup(c echo.Context) error {
	recordID := c.QueryParam("record_id")
	if recordID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "record_id is required")
	}

	group, err := h.store.FindDedup(c.Request().Context(), store.GroupFilter{
		ContainsID: recordID,
		Deleted:    store.Bool(false),
	})
	if err != nil {
		return err
	}
	if group == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "record is not in a dedup group")
	}
	return c.JSON(http.StatusOK, group)
}

// CheckGroup runs the integrity check on a group and returns what was repaired
func (h *Handler) CheckGroup(c echo.Context) error {
	ctx := c.Request().Context()

	group, err := h.getGroup(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	lines, err := h.engine.CheckDedupRecord(ctx, group)
	if err != nil {
		return err
	}
	if lines == nil {
		lines = []string{}
	}

	group, err = h.getGroup(ctx, group.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CheckResponse{Group: group, Removed: lines})
}
