// Package handler provides the HTTP handlers of the accounts feature.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trading_bridge/internal/feature/accounts/domain/entity"
	"trading_bridge/internal/feature/accounts/transport/http/dto"
	platformhttp "trading_bridge/internal/platform/http"
)

// AccountsManager is the slice of the account manager this handler
// needs. Following Go convention, the interface is defined on the
// consumer (handler) side.
type AccountsManager interface {
	FetchAccounts(ctx context.Context, force bool) ([]entity.Account, error)
	SetNickname(ctx context.Context, accountID, nickname string) error
	RemoveAccount(ctx context.Context, accountID string) error
}

// AccountsHandler handles HTTP requests for connected broker accounts.
type AccountsHandler struct {
	uc AccountsManager
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(uc AccountsManager) *AccountsHandler {
	return &AccountsHandler{uc: uc}
}

// List returns the connected accounts, served from the cache unless
// ?force=true bypasses the fetch cooldown.
//
// GET /api/v1/accounts?force=true
func (h *AccountsHandler) List(c *gin.Context) {
	force := c.Query("force") == "true"

	accounts, err := h.uc.FetchAccounts(c.Request.Context(), force)
	if err != nil {
		c.JSON(upstreamStatus(err), dto.ErrorResponse{Error: err.Error()})
		return
	}
	if accounts == nil {
		accounts = []entity.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

// Rename updates an account's nickname.
//
// PATCH /api/v1/accounts/:id
func (h *AccountsHandler) Rename(c *gin.Context) {
	var req dto.NicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.uc.SetNickname(c.Request.Context(), c.Param("id"), req.Nickname); err != nil {
		c.JSON(upstreamStatus(err), dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove disconnects an account from the user.
//
// DELETE /api/v1/accounts/:id
func (h *AccountsHandler) Remove(c *gin.Context) {
	if err := h.uc.RemoveAccount(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(upstreamStatus(err), dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// upstreamStatus forwards the backend's status code when the error
// carries one, and reports a bad gateway otherwise.
func upstreamStatus(err error) int {
	var apiErr *platformhttp.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
