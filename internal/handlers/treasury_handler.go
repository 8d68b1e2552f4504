package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"coopfund/internal/auth"
	"coopfund/internal/models"
	"coopfund/internal/services"
)

// TreasuryHandler exposes vault withdrawal operations.
type TreasuryHandler struct {
	treasury *services.TreasuryService
}

func NewTreasuryHandler(treasury *services.TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{treasury: treasury}
}

// Withdraw sweeps reserve units from the vault to a destination account
// POST /api/treasury/withdraw
func (h *TreasuryHandler) Withdraw(c *gin.Context) {
	h.withdraw(c, h.treasury.WithdrawToTreasury)
}

// EmergencyWithdraw is the ADMIN incident-response withdrawal
// POST /api/admin/treasury/emergency-withdraw
func (h *TreasuryHandler) EmergencyWithdraw(c *gin.Context) {
	h.withdraw(c, h.treasury.EmergencyWithdraw)
}

func (h *TreasuryHandler) withdraw(c *gin.Context, op func(ctx context.Context, amount decimal.Decimal, destination, actor string) error) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, _ := auth.GetWalletAddress(c)

	if err := op(c.Request.Context(), req.Amount, req.Destination, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":      req.Amount,
		"destination": req.Destination,
	})
}

// VaultBalance returns the vault's reserve-unit balance
// GET /api/treasury/vault-balance
func (h *TreasuryHandler) VaultBalance(c *gin.Context) {
	balance, err := h.treasury.VaultBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read vault balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vault_balance": balance})
}
