package handlers

import (
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/pagination"
	"clinicdesk/internal/pkg/response"
	"clinicdesk/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// PatientHandler handles patients, medical records and search
type PatientHandler struct {
	patientService      *services.PatientService
	prescriptionService *services.PrescriptionService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(patientService *services.PatientService, prescriptionService *services.PrescriptionService) *PatientHandler {
	return &PatientHandler{
		patientService:      patientService,
		prescriptionService: prescriptionService,
	}
}

// ListPatients lists patients
// @Summary List patients
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name, NIC or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=services.ListPatientsOutput}
// @Router /patients [get]
func (h *PatientHandler) ListPatients(c *fiber.Ctx) error {
	out, err := h.patientService.ListPatients(c.UserContext(), middleware.GetScope(c), c.Query("q"), pagination.GetParams(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Patients retrieved successfully", out)
}

// Search is the global patient search
// @Summary Search patients
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text"
// @Success 200 {object} response.Response
// @Router /search [get]
func (h *PatientHandler) Search(c *fiber.Ctx) error {
	patients, err := h.patientService.Search(c.UserContext(), middleware.GetScope(c), c.Query("q"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Search completed", patients)
}

// CreatePatient registers a patient
// @Summary Create patient
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.PatientInput true "Patient data"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /patients [post]
func (h *PatientHandler) CreatePatient(c *fiber.Ctx) error {
	var input services.PatientInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	patient, err := h.patientService.CreatePatient(c.UserContext(), middleware.GetScope(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Patient created successfully", patient)
}

// GetPatient returns one patient
// @Summary Get patient
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patients/{id} [get]
func (h *PatientHandler) GetPatient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	patient, err := h.patientService.GetPatient(c.UserContext(), middleware.GetScope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Patient retrieved successfully", patient)
}

// UpdatePatient edits a patient
// @Summary Update patient
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Param body body services.PatientInput true "Patient data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patients/{id} [put]
func (h *PatientHandler) UpdatePatient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var input services.PatientInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	patient, err := h.patientService.UpdatePatient(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Patient updated successfully", patient)
}

// DeletePatient removes a patient without history
// @Summary Delete patient
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /patients/{id} [delete]
func (h *PatientHandler) DeletePatient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.patientService.DeletePatient(c.UserContext(), middleware.GetScope(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Patient deleted successfully", nil)
}

// ListMedicalRecords returns a patient's records
// @Summary List medical records
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Success 200 {object} response.Response
// @Router /patients/{id}/medical-records [get]
func (h *PatientHandler) ListMedicalRecords(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	records, err := h.patientService.ListMedicalRecords(c.UserContext(), middleware.GetScope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Medical records retrieved successfully", records)
}

// AddMedicalRecord appends a medical record
// @Summary Add medical record
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Param body body services.MedicalRecordInput true "Record"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /patients/{id}/medical-records [post]
func (h *PatientHandler) AddMedicalRecord(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var input services.MedicalRecordInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	record, err := h.patientService.AddMedicalRecord(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Medical record added successfully", record)
}

// ListPrescriptions returns a patient's prescriptions
// @Summary List patient prescriptions
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Success 200 {object} response.Response
// @Router /patients/{id}/prescriptions [get]
func (h *PatientHandler) ListPrescriptions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	list, err := h.prescriptionService.ListForPatient(c.UserContext(), middleware.GetScope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Prescriptions retrieved successfully", list)
}
