package handlers

import (
	"errors"
	"fmt"

	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/core/services"
	"spsc-mbanking/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizationHandler handles transaction authorization endpoints
type AuthorizationHandler struct {
	authzService *services.AuthorizationService
}

// NewAuthorizationHandler creates a new authorization handler
func NewAuthorizationHandler(authzService *services.AuthorizationService) *AuthorizationHandler {
	return &AuthorizationHandler{authzService: authzService}
}

// ConfirmRequest represents OTP confirmation request
type ConfirmRequest struct {
	Code string `json:"code"`
}

// Begin handles authorization begin
// @Summary Begin transaction authorization
// @Description Verify PIN (and biometric for high-value amounts), then issue an OTP
// @Tags Authorization
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BeginInput true "Operation data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 423 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /transactions/authorize [post]
func (h *AuthorizationHandler) Begin(c *fiber.Ctx) error {
	var input services.BeginInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	identityID, _ := c.Locals("identityID").(uint)

	result, err := h.authzService.Begin(c.Context(), identityID, &input)
	if err != nil {
		return mapAuthorizationError(c, err)
	}

	return response.Created(c, "Verification code sent", result)
}

// Resend handles OTP resend
// @Summary Resend verification code
// @Description Re-issue the OTP for an attempt whose code has expired
// @Tags Authorization
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param txn_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /transactions/{txn_id}/resend [post]
func (h *AuthorizationHandler) Resend(c *fiber.Ctx) error {
	txnID := c.Params("txn_id")
	if txnID == "" {
		return response.BadRequest(c, "Transaction ID is required")
	}

	identityID, _ := c.Locals("identityID").(uint)

	result, err := h.authzService.Resend(c.Context(), identityID, txnID)
	if err != nil {
		return mapAuthorizationError(c, err)
	}

	return response.Success(c, "Verification code re-sent", result)
}

// Confirm handles OTP confirmation and settlement
// @Summary Confirm transaction
// @Description Validate the OTP and settle the transaction exactly once
// @Tags Authorization
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param txn_id path string true "Transaction ID"
// @Param body body ConfirmRequest true "Verification code"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /transactions/{txn_id}/confirm [post]
func (h *AuthorizationHandler) Confirm(c *fiber.Ctx) error {
	txnID := c.Params("txn_id")
	if txnID == "" {
		return response.BadRequest(c, "Transaction ID is required")
	}

	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Code == "" {
		return response.BadRequest(c, "Verification code is required")
	}

	identityID, _ := c.Locals("identityID").(uint)

	result, err := h.authzService.Confirm(c.Context(), identityID, txnID, req.Code)
	if err != nil {
		return mapAuthorizationError(c, err)
	}

	return response.Success(c, "Transaction settled", result)
}

// mapAuthorizationError maps domain errors to HTTP responses
func mapAuthorizationError(c *fiber.Ctx, err error) error {
	var wrongCred *domain.WrongCredentialError

	switch {
	case errors.As(err, &wrongCred):
		return response.Unauthorized(c,
			fmt.Sprintf("Wrong %s, %d attempts remaining", wrongCred.Gate, wrongCred.Remaining))
	case errors.Is(err, domain.ErrAccountLocked):
		return response.Error(c, fiber.StatusLocked, "Account is locked, contact support")
	case errors.Is(err, domain.ErrUnauthenticated):
		return response.Unauthorized(c, "Unauthorized")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Transaction not found")
	case errors.Is(err, domain.ErrWrongOtpCode):
		return response.UnprocessableEntity(c, "Invalid verification code")
	case errors.Is(err, domain.ErrOtpExpired):
		return response.UnprocessableEntity(c, "Verification code expired, request a new one")
	case errors.Is(err, domain.ErrOtpNotExpired):
		return response.Conflict(c, "Current verification code is still valid")
	case errors.Is(err, domain.ErrOtpAlreadyConsumed):
		return response.Conflict(c, "Transaction already processed")
	case errors.Is(err, domain.ErrAlreadySettled):
		return response.Conflict(c, "Target record already settled")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return response.UnprocessableEntity(c, "Insufficient funds")
	case errors.Is(err, domain.ErrNotMatured):
		return response.UnprocessableEntity(c, "Deposit has not matured yet")
	case errors.Is(err, domain.ErrConflict):
		return response.Conflict(c, "Concurrent update conflict, please retry")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return response.ServiceUnavailable(c, "Verification service unavailable, try again later")
	default:
		return response.InternalServerError(c, "Authorization failed")
	}
}
