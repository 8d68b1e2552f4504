package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coopfund/internal/auth"
	"coopfund/internal/models"
	"coopfund/internal/repository"
	"coopfund/internal/services"
)

// RedemptionHandler exposes the redemption lifecycle: members create and view
// requests, operators settle them through the role-gated groups.
type RedemptionHandler struct {
	redemptions *services.RedemptionService
	ledger      *services.LedgerService
	repo        *repository.Repository
}

func NewRedemptionHandler(redemptions *services.RedemptionService, ledger *services.LedgerService, repo *repository.Repository) *RedemptionHandler {
	return &RedemptionHandler{
		redemptions: redemptions,
		ledger:      ledger,
		repo:        repo,
	}
}

// Redeem escrows reserve units and opens a redemption request
// POST /api/redemptions
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	wallet, _ := auth.GetWalletAddress(c)

	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.redemptions.Redeem(c.Request.Context(), wallet, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": request})
}

// GetRequest returns one redemption request
// GET /api/redemptions/:id
func (h *RedemptionHandler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	request, err := h.redemptions.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// ListMine returns the caller's redemption requests
// GET /api/redemptions
func (h *RedemptionHandler) ListMine(c *gin.Context) {
	wallet, _ := auth.GetWalletAddress(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, total, err := h.repo.ListMemberRedemptions(c.Request.Context(), wallet, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list redemptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// ListAll returns redemption requests across members, optionally by status
// GET /api/ops/redemptions?status=PENDING
func (h *RedemptionHandler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := models.RedemptionStatus(c.Query("status"))

	requests, total, err := h.repo.ListRedemptions(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list redemptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Fulfill settles a pending request with a custody payout
// POST /api/ops/redemptions/:id/fulfill
func (h *RedemptionHandler) Fulfill(c *gin.Context) {
	h.settle(c, func(id uuid.UUID, operator string) (*models.RedemptionRequest, error) {
		return h.redemptions.Fulfill(c.Request.Context(), id, operator)
	})
}

// Cancel returns escrowed units to the requester
// POST /api/ops/redemptions/:id/cancel
func (h *RedemptionHandler) Cancel(c *gin.Context) {
	h.settle(c, func(id uuid.UUID, operator string) (*models.RedemptionRequest, error) {
		return h.redemptions.Cancel(c.Request.Context(), id, operator)
	})
}

// Forfeit burns escrowed units with no payout
// POST /api/ops/redemptions/:id/forfeit
func (h *RedemptionHandler) Forfeit(c *gin.Context) {
	var req models.ForfeitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.settle(c, func(id uuid.UUID, operator string) (*models.RedemptionRequest, error) {
		return h.redemptions.Forfeit(c.Request.Context(), id, req.Reason, operator)
	})
}

// EmergencyResolve marks a request resolved out-of-band
// POST /api/treasury/redemptions/:id/emergency-resolve
func (h *RedemptionHandler) EmergencyResolve(c *gin.Context) {
	var req models.EmergencyResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.settle(c, func(id uuid.UUID, operator string) (*models.RedemptionRequest, error) {
		return h.redemptions.MarkEmergencyResolved(c.Request.Context(), id, req.Note, operator)
	})
}

func (h *RedemptionHandler) settle(c *gin.Context, op func(uuid.UUID, string) (*models.RedemptionRequest, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	operator, _ := auth.GetWalletAddress(c)

	request, err := op(id, operator)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// GetBalance returns the caller's reserve-unit balance
// GET /api/balance
func (h *RedemptionHandler) GetBalance(c *gin.Context) {
	wallet, _ := auth.GetWalletAddress(c)

	balance, err := h.ledger.Balance(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":  wallet,
		"balance": balance,
	})
}

// GetLedgerEntries returns ledger entries touching the caller's wallet
// GET /api/ledger
func (h *RedemptionHandler) GetLedgerEntries(c *gin.Context) {
	wallet, _ := auth.GetWalletAddress(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, total, err := h.repo.ListLedgerEntries(c.Request.Context(), wallet, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list ledger entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetReserve returns the vault reserve accounting row
// GET /api/treasury/reserve
func (h *RedemptionHandler) GetReserve(c *gin.Context) {
	reserve, err := h.redemptions.VaultReserve(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reserve": reserve})
}

// ResyncReserve refreshes the cached reserve from live custody
// POST /api/treasury/reserve/resync
func (h *RedemptionHandler) ResyncReserve(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)

	live, err := h.redemptions.ResyncReserve(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cached_reserve": live})
}

// SetPerUserCap sets the per-request redemption cap
// PUT /api/treasury/caps/per-user
func (h *RedemptionHandler) SetPerUserCap(c *gin.Context) {
	h.setCap(c, h.redemptions.SetMaxRedemptionPerUser)
}

// SetDailyCap sets the aggregate daily redemption cap
// PUT /api/treasury/caps/daily
func (h *RedemptionHandler) SetDailyCap(c *gin.Context) {
	h.setCap(c, h.redemptions.SetMaxDailyRedemptions)
}

func (h *RedemptionHandler) setCap(c *gin.Context, set func(ctx context.Context, amount decimal.Decimal, actor string) error) {
	var req models.CapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, _ := auth.GetWalletAddress(c)

	if err := set(c.Request.Context(), req.Amount, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"amount": req.Amount})
}
