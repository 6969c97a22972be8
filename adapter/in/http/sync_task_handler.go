package http

import (
	"strconv"

	in "sync_server/core/port/in"
	"sync_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles HTTP requests for task operations
type TaskHandler struct {
	service in.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(service in.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Register registers task routes
func (h *TaskHandler) Register(router fiber.Router) {
	tasks := router.Group("/tasks")

	tasks.Post("/", h.Create)
	tasks.Get("/:id", h.Get)
	tasks.Put("/:id", h.Update)
	tasks.Post("/:id/complete", h.Complete)

	// Batch operations
	tasks.Delete("/batch", h.BatchDelete)
	tasks.Post("/move", h.Move)
}

// Get retrieves a task by ID
// @Summary Get a task by ID
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid task ID")
	}

	task, err := h.service.GetTask(c.Context(), userID, id)
	if err != nil {
		return ServiceError(err)
	}

	return response.OK(c, task)
}

// Create creates a new task
// @Summary Create a new task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body in.CreateTaskRequest true "Task data"
// @Router /api/v1/tasks [post]
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	task, err := h.service.CreateTask(c.Context(), userID, &req)
	if err != nil {
		return ServiceError(err)
	}

	return response.Created(c, task)
}

// Update applies a version-qualified partial update. A 409 response carries
// the pending conflict when the write could not be merged automatically.
// @Summary Update a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body in.UpdateTaskRequest true "Task data"
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid task ID")
	}

	var req in.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.ExpectedVersion <= 0 {
		return response.BadRequest(c, "expected_version is required")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	result, err := h.service.UpdateTask(c.Context(), userID, id, &req)
	if err != nil {
		return ServiceError(err)
	}
	if result.Conflict != nil {
		return response.Conflict(c, "VERSION_CONFLICT", result)
	}

	return response.OK(c, result)
}

// Complete marks a task completed
// @Summary Complete a task
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid task ID")
	}

	var req struct {
		ExpectedVersion int64  `json:"expected_version"`
		DeviceID        string `json:"device_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.ExpectedVersion <= 0 {
		return response.BadRequest(c, "expected_version is required")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	result, err := h.service.CompleteTask(c.Context(), userID, id, req.ExpectedVersion, req.DeviceID)
	if err != nil {
		return ServiceError(err)
	}
	if result.Conflict != nil {
		return response.Conflict(c, "VERSION_CONFLICT", result)
	}

	return response.OK(c, result)
}

// BatchDelete deletes a set of tasks as one undoable action
// @Summary Delete tasks
// @Tags Tasks
// @Accept json
// @Router /api/v1/tasks/batch [delete]
func (h *TaskHandler) BatchDelete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		IDs      []int64 `json:"ids"`
		DeviceID string  `json:"device_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return response.BadRequest(c, "ids is required")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	if err := h.service.DeleteTasks(c.Context(), userID, req.IDs, req.DeviceID); err != nil {
		return ServiceError(err)
	}

	return response.NoContent(c)
}

// Move repositions a batch of tasks
// @Summary Move tasks
// @Tags Tasks
// @Accept json
// @Router /api/v1/tasks/move [post]
func (h *TaskHandler) Move(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.MoveTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.Moves) == 0 {
		return response.BadRequest(c, "moves is required")
	}
	if req.DeviceID == "" {
		req.DeviceID = GetDeviceID(c)
	}

	if err := h.service.MoveTasks(c.Context(), userID, &req); err != nil {
		return ServiceError(err)
	}

	return response.NoContent(c)
}
