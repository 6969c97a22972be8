package http

import (
	in "sync_server/core/port/in"
	"sync_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler handles HTTP requests for undo/redo operations
type HistoryHandler struct {
	service in.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service in.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// Register registers history routes
func (h *HistoryHandler) Register(router fiber.Router) {
	history := router.Group("/history")

	history.Get("/", h.List)
	history.Post("/undo", h.Undo)
	history.Post("/redo", h.Redo)
}

// Undo reverts the most recent action. An empty result means there was
// nothing to undo.
// @Summary Undo the last action
// @Tags History
// @Produce json
// @Router /api/v1/history/undo [post]
func (h *HistoryHandler) Undo(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	result, err := h.service.Undo(c.Context(), userID)
	if err != nil {
		return ServiceError(err)
	}

	return response.OK(c, result)
}

// Redo re-applies the most recently undone action
// @Summary Redo the last undone action
// @Tags History
// @Produce json
// @Router /api/v1/history/redo [post]
func (h *HistoryHandler) Redo(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	result, err := h.service.Redo(c.Context(), userID)
	if err != nil {
		return ServiceError(err)
	}

	return response.OK(c, result)
}

// List returns the in-memory history window and the undo pointer
// @Summary List recorded actions
// @Tags History
// @Produce json
// @Router /api/v1/history [get]
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	items, current, err := h.service.History(c.Context(), userID)
	if err != nil {
		return ServiceError(err)
	}

	return response.OKWithMeta(c, items, &response.Meta{
		Total:   len(items),
		Current: &current,
	})
}
