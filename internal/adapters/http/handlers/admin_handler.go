package handlers

import (
	"errors"
	"strconv"

	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/services"
	"spsc-mbanking/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminHandler handles administrative lock management endpoints
type AdminHandler struct {
	lockout      *services.LockoutService
	identityRepo *repositories.IdentityRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(lockout *services.LockoutService, identityRepo *repositories.IdentityRepository) *AdminHandler {
	return &AdminHandler{lockout: lockout, identityRepo: identityRepo}
}

// LockRequest represents lock request
type LockRequest struct {
	Reason string `json:"reason"`
}

// Lock handles identity lock
// @Summary Lock identity
// @Description Lock an identity and its settlement account (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Identity ID"
// @Param body body LockRequest true "Lock reason"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/identities/{id}/lock [post]
func (h *AdminHandler) Lock(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid identity ID")
	}

	var req LockRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Reason == "" {
		return response.BadRequest(c, "Lock reason is required")
	}

	identity, err := h.identityRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Identity not found")
		}
		return response.InternalServerError(c, "Failed to load identity")
	}

	if err := h.lockout.LockIdentityAndAccount(c.Context(), identity.ID, identity.PrimaryAccountNo, req.Reason); err != nil {
		return response.InternalServerError(c, "Failed to lock identity")
	}

	return response.Success(c, "Identity locked", fiber.Map{
		"identity_id": identity.ID,
		"reason":      req.Reason,
	})
}

// Unlock handles identity unlock
// @Summary Unlock identity
// @Description Restore a locked identity and account to ACTIVE, resetting failure counters (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Identity ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/identities/{id}/unlock [post]
func (h *AdminHandler) Unlock(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid identity ID")
	}

	identity, err := h.identityRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Identity not found")
		}
		return response.InternalServerError(c, "Failed to load identity")
	}

	if err := h.lockout.Unlock(c.Context(), identity.ID, identity.PrimaryAccountNo); err != nil {
		return response.InternalServerError(c, "Failed to unlock identity")
	}

	return response.Success(c, "Identity unlocked", fiber.Map{
		"identity_id": identity.ID,
	})
}
