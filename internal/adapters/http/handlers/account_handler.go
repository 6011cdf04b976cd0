package handlers

import (
	"errors"
	"strconv"

	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/core/services"
	"spsc-mbanking/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles account read endpoints
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// ListBalances handles account balance listing
// @Summary List account balances
// @Description List the caller's accounts with current balances
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /accounts [get]
func (h *AccountHandler) ListBalances(c *fiber.Ctx) error {
	identityID, _ := c.Locals("identityID").(uint)

	balances, err := h.accountService.ListBalances(c.Context(), identityID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load accounts")
	}

	return response.Success(c, "Accounts retrieved", fiber.Map{
		"accounts": balances,
	})
}

// GetBalance handles single account balance
// @Summary Get account balance
// @Description Get one account's current balance
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param number path string true "Account number"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /accounts/{number} [get]
func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	identityID, _ := c.Locals("identityID").(uint)

	balance, err := h.accountService.GetBalance(c.Context(), identityID, c.Params("number"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Account not found")
		}
		return response.InternalServerError(c, "Failed to load account")
	}

	return response.Success(c, "Account retrieved", balance)
}

// History handles transaction history
// @Summary Transaction history
// @Description List the caller's most recent settled transactions
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Items to return" default(20)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /transactions [get]
func (h *AccountHandler) History(c *fiber.Ctx) error {
	identityID, _ := c.Locals("identityID").(uint)
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	records, err := h.accountService.History(c.Context(), identityID, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load history")
	}

	return response.Success(c, "History retrieved", fiber.Map{
		"transactions": records,
	})
}

// Notifications handles notification inbox
// @Summary Notification inbox
// @Description List the caller's balance-change notifications, newest first
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Items to return" default(20)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /notifications [get]
func (h *AccountHandler) Notifications(c *fiber.Ctx) error {
	identityID, _ := c.Locals("identityID").(uint)
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	notifications, err := h.accountService.Notifications(c.Context(), identityID, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load notifications")
	}

	return response.Success(c, "Notifications retrieved", fiber.Map{
		"notifications": notifications,
	})
}
