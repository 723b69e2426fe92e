package handlers

import (
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/response"
	"clinicdesk/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// PrescriptionHandler handles prescriptions and payments
type PrescriptionHandler struct {
	prescriptionService *services.PrescriptionService
}

// NewPrescriptionHandler creates a new prescription handler
func NewPrescriptionHandler(prescriptionService *services.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptionService: prescriptionService}
}

// ListPrescriptions lists prescriptions
// @Summary List prescriptions
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param patient_id query int false "Patient filter"
// @Param issued query bool false "Issued filter"
// @Success 200 {object} response.Response
// @Router /prescriptions [get]
func (h *PrescriptionHandler) ListPrescriptions(c *fiber.Ctx) error {
	patientID, err := queryUint(c, "patient_id")
	if err != nil {
		return response.FromError(c, err)
	}
	issued, err := queryBool(c, "issued")
	if err != nil {
		return response.FromError(c, err)
	}

	list, err := h.prescriptionService.ListPrescriptions(c.UserContext(), middleware.GetScope(c), services.PrescriptionListFilter{
		PatientID: patientID,
		Issued:    issued,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Prescriptions retrieved successfully", list)
}

// CreatePrescription stores a prescription with its items
// @Summary Create prescription
// @Tags Prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreatePrescriptionInput true "Prescription"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /prescriptions [post]
func (h *PrescriptionHandler) CreatePrescription(c *fiber.Ctx) error {
	var input services.CreatePrescriptionInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	prescription, err := h.prescriptionService.CreatePrescription(c.UserContext(), middleware.GetScope(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Prescription created successfully", prescription)
}

// GetPrescription returns one prescription with items and payments
// @Summary Get prescription
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /prescriptions/{id} [get]
func (h *PrescriptionHandler) GetPrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	prescription, err := h.prescriptionService.GetPrescription(c.UserContext(), middleware.GetScope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Prescription retrieved successfully", prescription)
}

// DeletePrescription removes an unissued prescription
// @Summary Delete prescription
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /prescriptions/{id} [delete]
func (h *PrescriptionHandler) DeletePrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.prescriptionService.DeletePrescription(c.UserContext(), middleware.GetScope(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Prescription deleted successfully", nil)
}

// IssuePrescription dispenses drugs and records the payment
// @Summary Issue prescription
// @Description Decrement stock, mark issued and record the payment in one transaction
// @Tags Prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Param body body services.IssueInput false "Payment"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /prescriptions/{id}/issue [post]
func (h *PrescriptionHandler) IssuePrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var input services.IssueInput
	if len(c.Body()) > 0 {
		if err := validate.Bind(c, &input); err != nil {
			return response.FromError(c, err)
		}
	}

	prescription, err := h.prescriptionService.IssuePrescription(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Prescription issued successfully", prescription)
}

// ============================================================
// Payments
// ============================================================

// AddPayment records a payment against a prescription
// @Summary Add payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Param body body services.PaymentInput true "Payment"
// @Success 201 {object} response.Response
// @Router /prescriptions/{id}/payments [post]
func (h *PrescriptionHandler) AddPayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var input services.PaymentInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	payment, err := h.prescriptionService.AddPayment(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Payment recorded successfully", payment)
}

// ListPayments lists payments
// @Summary List payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param prescription_id query int false "Prescription filter"
// @Success 200 {object} response.Response
// @Router /payments [get]
func (h *PrescriptionHandler) ListPayments(c *fiber.Ctx) error {
	prescriptionID, err := queryUint(c, "prescription_id")
	if err != nil {
		return response.FromError(c, err)
	}

	payments, err := h.prescriptionService.ListPayments(c.UserContext(), middleware.GetScope(c), prescriptionID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payments retrieved successfully", payments)
}

// DeletePayment removes a payment
// @Summary Delete payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/{id} [delete]
func (h *PrescriptionHandler) DeletePayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.prescriptionService.DeletePayment(c.UserContext(), middleware.GetScope(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment deleted successfully", nil)
}
