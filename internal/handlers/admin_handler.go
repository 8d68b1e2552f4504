package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coopfund/internal/auth"
	"coopfund/internal/models"
	"coopfund/internal/repository"
	"coopfund/internal/services"
)

// AdminHandler exposes role management, membership moderation and the audit
// trail. All routes sit behind the ADMIN role gate.
type AdminHandler struct {
	authority *services.AuthorityService
	members   *services.MemberService
	repo      *repository.Repository
}

func NewAdminHandler(authority *services.AuthorityService, members *services.MemberService, repo *repository.Repository) *AdminHandler {
	return &AdminHandler{
		authority: authority,
		members:   members,
		repo:      repo,
	}
}

type roleRequest struct {
	Wallet string      `json:"wallet" binding:"required"`
	Role   models.Role `json:"role" binding:"required"`
}

// GrantRole assigns a capability role to a wallet
// POST /api/admin/roles/grant
func (h *AdminHandler) GrantRole(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authority.GrantRole(c.Request.Context(), req.Wallet, req.Role, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": req.Wallet, "role": req.Role})
}

// RevokeRole removes a capability role from a wallet
// POST /api/admin/roles/revoke
func (h *AdminHandler) RevokeRole(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authority.RevokeRole(c.Request.Context(), req.Wallet, req.Role, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": req.Wallet, "role": req.Role})
}

// GetRoles lists roles held by a wallet
// GET /api/admin/roles/:wallet
func (h *AdminHandler) GetRoles(c *gin.Context) {
	wallet := c.Param("wallet")

	roles, err := h.authority.RolesFor(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list roles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "roles": roles})
}

// InitiateAdminTransfer grants ADMIN to the incoming wallet
// POST /api/admin/transfer/initiate
func (h *AdminHandler) InitiateAdminTransfer(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)

	var req struct {
		NewAdmin string `json:"new_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authority.InitiateAdminTransfer(c.Request.Context(), req.NewAdmin, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_admin": req.NewAdmin})
}

// CompleteAdminTransfer revokes the caller's own ADMIN grant
// POST /api/admin/transfer/complete
func (h *AdminHandler) CompleteAdminTransfer(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)

	if err := h.authority.CompleteAdminTransfer(c.Request.Context(), actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "admin role relinquished"})
}

// SuspendMember suspends a member
// POST /api/admin/members/:wallet/suspend
func (h *AdminHandler) SuspendMember(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)
	wallet := c.Param("wallet")

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.members.Suspend(c.Request.Context(), wallet, req.Reason, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "status": models.MemberStatusSuspended})
}

// ReinstateMember reactivates a suspended member
// POST /api/admin/members/:wallet/reinstate
func (h *AdminHandler) ReinstateMember(c *gin.Context) {
	actor, _ := auth.GetWalletAddress(c)
	wallet := c.Param("wallet")

	if err := h.members.Reinstate(c.Request.Context(), wallet, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "status": models.MemberStatusActive})
}

// GetAuditLogs lists audit records, optionally filtered by actor
// GET /api/admin/audit?actor=...
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	actor := c.Query("actor")

	logs, total, err := h.repo.ListAuditLogs(c.Request.Context(), actor, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
