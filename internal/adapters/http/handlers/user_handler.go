package handlers

import (
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/response"
	"clinicdesk/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles account settings endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ChangePassword changes the caller's password
// @Summary Change password
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /settings/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var input services.ChangePasswordInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	if err := h.userService.ChangePassword(c.UserContext(), middleware.GetScope(c), &input); err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Password changed successfully", nil)
}

// ListAccounts lists the staff of the caller's clinic
// @Summary List staff accounts
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /settings/accounts [get]
func (h *UserHandler) ListAccounts(c *fiber.Ctx) error {
	users, err := h.userService.ListAccounts(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Accounts retrieved successfully", users)
}

// CreateAccount creates a staff account in the caller's clinic
// @Summary Create staff account (Admin only)
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateAccountInput true "Account data"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /settings/accounts [post]
func (h *UserHandler) CreateAccount(c *fiber.Ctx) error {
	var input services.CreateAccountInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	user, err := h.userService.CreateAccount(c.UserContext(), middleware.GetScope(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Account created successfully", user)
}

// UpdateAccount changes role or active flag of a staff account
// @Summary Update staff account (Admin only)
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateAccountInput true "Changes"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /settings/accounts/{id} [put]
func (h *UserHandler) UpdateAccount(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var input services.UpdateAccountInput
	if err := validate.Bind(c, &input); err != nil {
		return response.FromError(c, err)
	}

	user, err := h.userService.UpdateAccount(c.UserContext(), middleware.GetScope(c), id, &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Account updated successfully", user)
}
