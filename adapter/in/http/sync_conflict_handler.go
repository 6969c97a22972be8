package http

import (
	"sync_server/core/domain"
	in "sync_server/core/port/in"
	"sync_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ConflictHandler handles HTTP requests for manual conflict resolution
type ConflictHandler struct {
	service in.ConflictService
}

// NewConflictHandler creates a new ConflictHandler
func NewConflictHandler(service in.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// Register registers conflict routes
func (h *ConflictHandler) Register(router fiber.Router) {
	conflicts := router.Group("/conflicts")

	conflicts.Get("/pending", h.Pending)
	conflicts.Post("/:id/resolve", h.Resolve)
	conflicts.Post("/:id/cancel", h.Cancel)
}

// Pending returns the conflict awaiting resolution, if any
// @Summary Get the pending conflict
// @Tags Conflicts
// @Produce json
// @Router /api/v1/conflicts/pending [get]
func (h *ConflictHandler) Pending(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	conflict, err := h.service.PendingConflict(c.Context(), userID)
	if err != nil {
		return ServiceError(err)
	}

	return response.OK(c, conflict)
}

// Resolve applies a decision to the parked conflict. If a third writer raced
// the resolution the response carries a fresh conflict instead of the record.
// @Summary Resolve a pending conflict
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param request body domain.Resolution true "Resolution decision"
// @Router /api/v1/conflicts/{id}/resolve [post]
func (h *ConflictHandler) Resolve(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	conflictID := c.Params("id")
	if conflictID == "" {
		return response.BadRequest(c, "conflict ID is required")
	}

	var res domain.Resolution
	if err := c.BodyParser(&res); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	switch res.Choice {
	case domain.ResolutionLocal, domain.ResolutionRemote:
	case domain.ResolutionMerge:
		if res.Data == nil {
			return response.BadRequest(c, "merge resolution requires data")
		}
	default:
		return response.BadRequest(c, "choice must be local, remote or merge")
	}

	result, err := h.service.ResolveConflict(c.Context(), userID, conflictID, &res)
	if err != nil {
		return ServiceError(err)
	}
	if result.Conflict != nil {
		return response.Conflict(c, "VERSION_CONFLICT", result)
	}

	return response.OK(c, result)
}

// Cancel abandons the parked conflict
// @Summary Cancel a pending conflict
// @Tags Conflicts
// @Param id path string true "Conflict ID"
// @Router /api/v1/conflicts/{id}/cancel [post]
func (h *ConflictHandler) Cancel(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	conflictID := c.Params("id")
	if conflictID == "" {
		return response.BadRequest(c, "conflict ID is required")
	}

	if err := h.service.CancelConflict(c.Context(), userID, conflictID); err != nil {
		return ServiceError(err)
	}

	return response.NoContent(c)
}
