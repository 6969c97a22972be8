package http

import (
	"errors"

	"sync_server/core/service/common"
	"sync_server/pkg/apperr"
	"sync_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetUserID safely extracts user_id from fiber context.
// Returns error if not authenticated.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDVal := c.Locals("user_id")
	if userIDVal == nil {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	return userID, nil
}

// GetDeviceID extracts the device identity from the token claims; falls back
// to the X-Device-ID header for clients with device-agnostic tokens.
func GetDeviceID(c *fiber.Ctx) string {
	if did, ok := c.Locals("device_id").(string); ok && did != "" {
		return did
	}
	return c.Get("X-Device-ID")
}

// ServiceError maps a service-layer error onto an AppError so the central
// error handler renders the right status and code.
func ServiceError(err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return apperr.NotFound("record").WithError(err)
	case errors.Is(err, common.ErrUnauthorized):
		return apperr.Forbidden("record belongs to another user").WithError(err)
	case errors.Is(err, common.ErrInvalidInput):
		return apperr.BadRequest(err.Error()).WithError(err)
	case errors.Is(err, common.ErrVersionMismatch):
		return apperr.VersionConflict("").WithError(err)
	case errors.Is(err, common.ErrResolutionPending):
		return apperr.ResolutionPending("").WithError(err)
	case errors.Is(err, common.ErrHistoryExpired):
		return apperr.HistoryExpired().WithError(err)
	case errors.Is(err, common.ErrMutationCancelled):
		return apperr.MutationCancelled().WithError(err)
	default:
		logger.WithError(err).Error("unhandled service error")
		return apperr.InternalWithError(err)
	}
}
