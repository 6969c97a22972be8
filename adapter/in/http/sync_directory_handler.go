package http

import (
	"strconv"

	in "sync_server/core/port/in"
	"sync_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DirectoryHandler handles HTTP requests for directory operations
type DirectoryHandler struct {
	service in.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(service in.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// Register registers directory routes
func (h *DirectoryHandler) Register(router fiber.Router) {
	dirs := router.Group("/directories")

	dirs.Post("/", h.Create)
	dirs.Get("/:id", h.Get)
	dirs.Put("/:id", h.Update)
	dirs.Delete("/:id", h.Delete)
	dirs.Post("/:id/move", h.Move)
}

func (h *DirectoryHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid directory ID")
	}

	dir, err := h.service.GetDirectory(c.Context(), userID, id)
	if err != nil {
		return ServiceError(err)
	}

	return response.OK(c, dir)
}

func (h *DirectoryHandler) Create(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.CreateDirectoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	dir, err := h.service.CreateDirectory(c.Context(), userID, &req)
	if err != nil {
		return ServiceError(err)
	}

	return response.Created(c, dir)
}

func (h *DirectoryHandler) Update(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid directory ID")
	}

	var req in.UpdateDirectoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.ExpectedVersion <= 0 {
		return response.BadRequest(c, "expected_version is required")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	result, err := h.service.UpdateDirectory(c.Context(), userID, id, &req)
	if err != nil {
		return ServiceError(err)
	}
	if result.Conflict != nil {
		return response.Conflict(c, "VERSION_CONFLICT", result)
	}

	return response.OK(c, result)
}

func (h *DirectoryHandler) Delete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid directory ID")
	}

	if err := h.service.DeleteDirectory(c.Context(), userID, id, GetDeviceID(c)); err != nil {
		return ServiceError(err)
	}

	return response.NoContent(c)
}

func (h *DirectoryHandler) Move(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid directory ID")
	}

	var req in.MoveDirectoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	if err := h.service.MoveDirectory(c.Context(), userID, id, &req); err != nil {
		return ServiceError(err)
	}

	return response.NoContent(c)
}
