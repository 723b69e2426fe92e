package handlers

import (
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/response"
	"clinicdesk/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles drugs, drug types and dosage lookups
type CatalogHandler struct {
	catalogService *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ============================================================
// Drug types
// ============================================================

// ListDrugTypes godoc
// @Summary List drug types
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /drug-types [get]
func (h *CatalogHandler) ListDrugTypes(c *fiber.Ctx) error {
	types, err := h.catalogService.ListDrugTypes(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drug types retrieved successfully", types)
}

// CreateDrugType godoc
// @Summary Create drug type
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.DrugTypeInput true "Drug type"
// @Success 201 {object} response.Response
// @Router /drug-types [post]
func (h *CatalogHandler) CreateDrugType(c *fiber.Ctx) error {
	var input services.DrugTypeInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}
	drugType, err := h.catalogService.CreateDrugType(c.UserContext(), middleware.GetScope(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Drug type created successfully", drugType)
}

// DeleteDrugType godoc
// @Summary Delete drug type
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drug type ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /drug-types/{id} [delete]
func (h *CatalogHandler) DeleteDrugType(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.catalogService.DeleteDrugType(c.UserContext(), middleware.GetScope(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drug type deleted successfully", nil)
}

// ============================================================
// Dosages / frequencies / periods
// ============================================================

// ListDosages godoc
// @Summary List dosage, frequency and period options
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=services.DosageCatalog}
// @Router /dosages [get]
func (h *CatalogHandler) ListDosages(c *fiber.Ctx) error {
	out, err := h.catalogService.ListDosageOptions(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Dosage options retrieved successfully", out)
}

// CreateDosage godoc
// @Summary Create dosage option
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "dosage | frequency | period"
// @Param body body services.DosageOptionInput true "Option"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /dosages/{kind} [post]
func (h *CatalogHandler) CreateDosage(c *fiber.Ctx) error {
	var input services.DosageOptionInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}
	option, err := h.catalogService.CreateDosageOption(c.UserContext(), middleware.GetScope(c), c.Params("kind"), &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Dosage option created successfully", option)
}

// DeleteDosage godoc
// @Summary Delete dosage option
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param kind path string true "dosage | frequency | period"
// @Param id path int true "Option ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /dosages/{kind}/{id} [delete]
func (h *CatalogHandler) DeleteDosage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.catalogService.DeleteDosageOption(c.UserContext(), middleware.GetScope(c), c.Params("kind"), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Dosage option deleted successfully", nil)
}

// ============================================================
// Drugs
// ============================================================

// ListDrugs godoc
// @Summary List drugs
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name filter"
// @Success 200 {object} response.Response
// @Router /drugs [get]
func (h *CatalogHandler) ListDrugs(c *fiber.Ctx) error {
	drugs, err := h.catalogService.ListDrugs(c.UserContext(), middleware.GetScope(c), c.Query("q"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drugs retrieved successfully", drugs)
}

// CreateDrug godoc
// @Summary Create drug
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.DrugInput true "Drug"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /drugs [post]
func (h *CatalogHandler) CreateDrug(c *fiber.Ctx) error {
	var input services.DrugInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}
	drug, err := h.catalogService.CreateDrug(c.UserContext(), middleware.GetScope(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Drug created successfully", drug)
}

// GetDrug godoc
// @Summary Get drug
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drug ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /drugs/{id} [get]
func (h *CatalogHandler) GetDrug(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	drug, err := h.catalogService.GetDrug(c.UserContext(), middleware.GetScope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drug retrieved successfully", drug)
}

// UpdateDrug godoc
// @Summary Update drug
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drug ID"
// @Param body body services.DrugInput true "Drug"
// @Success 200 {object} response.Response
// @Router /drugs/{id} [put]
func (h *CatalogHandler) UpdateDrug(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var input services.DrugInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}
	drug, err := h.catalogService.UpdateDrug(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drug updated successfully", drug)
}

// DeleteDrug godoc
// @Summary Delete drug
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drug ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /drugs/{id} [delete]
func (h *CatalogHandler) DeleteDrug(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.catalogService.DeleteDrug(c.UserContext(), middleware.GetScope(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drug deleted successfully", nil)
}

// AddStock godoc
// @Summary Add stock
// @Description Record a delivery and raise the drug's quantity
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drug ID"
// @Param body body services.StockInput true "Stock"
// @Success 201 {object} response.Response
// @Router /drugs/{id}/stocks [post]
func (h *CatalogHandler) AddStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var input services.StockInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}
	drug, err := h.catalogService.AddStock(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Stock added successfully", drug)
}
