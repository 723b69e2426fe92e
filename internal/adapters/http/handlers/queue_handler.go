package handlers

import (
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/response"
	"clinicdesk/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// QueueHandler handles the clinic's daily patient queue
type QueueHandler struct {
	queueService *services.QueueService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// ============================================================
// GET /api/v1/queue
// ============================================================

// GetQueue returns the open queue with waiting patients in order
// @Summary Current queue
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=services.QueueView}
// @Failure 404 {object} response.Response
// @Router /queue [get]
func (h *QueueHandler) GetQueue(c *fiber.Ctx) error {
	view, err := h.queueService.GetQueue(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Queue retrieved successfully", view)
}

// ============================================================
// GET /api/v1/queue/history
// ============================================================

// GetHistory returns a day's queues, closed ones included, with every entry
// @Summary Queue history
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Param date query string false "Clinic-local day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Response{data=[]services.QueueView}
// @Failure 422 {object} response.Response
// @Router /queue/history [get]
func (h *QueueHandler) GetHistory(c *fiber.Ctx) error {
	views, err := h.queueService.GetQueueHistory(c.UserContext(), middleware.GetScope(c), c.Query("date"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Queue history retrieved successfully", views)
}

// ============================================================
// POST /api/v1/queue
// ============================================================

// CreateQueue opens today's queue
// @Summary Open queue
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue [post]
func (h *QueueHandler) CreateQueue(c *fiber.Ctx) error {
	queue, err := h.queueService.CreateQueue(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Queue opened successfully", queue)
}

// ============================================================
// POST /api/v1/queue/entries
// ============================================================

// AddEntry appends a patient to the open queue
// @Summary Add patient to queue
// @Tags Queue
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.AddToQueueInput true "Patient"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue/entries [post]
func (h *QueueHandler) AddEntry(c *fiber.Ctx) error {
	var input services.AddToQueueInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	entry, err := h.queueService.AddToQueue(c.UserContext(), middleware.GetScope(c), input.PatientID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Patient added to queue", entry)
}

// ============================================================
// POST /api/v1/queue/advance
// ============================================================

// Advance serves the next waiting patient
// @Summary Serve next patient
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue/advance [post]
func (h *QueueHandler) Advance(c *fiber.Ctx) error {
	entry, err := h.queueService.Advance(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Next patient called", entry)
}

// ============================================================
// DELETE /api/v1/queue/entries/:id
// ============================================================

// RemoveEntry takes a waiting patient out of the queue
// @Summary Remove queue entry
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Param id path int true "Entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /queue/entries/{id} [delete]
func (h *QueueHandler) RemoveEntry(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	entry, err := h.queueService.RemoveEntry(c.UserContext(), middleware.GetScope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Queue entry removed", entry)
}

// ============================================================
// POST /api/v1/queue/close
// ============================================================

// CloseQueue closes today's queue
// @Summary Close queue
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /queue/close [post]
func (h *QueueHandler) CloseQueue(c *fiber.Ctx) error {
	queue, err := h.queueService.CloseQueue(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Queue closed successfully", queue)
}
