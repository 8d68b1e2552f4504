package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coopfund/internal/auth"
	"coopfund/internal/models"
	"coopfund/internal/repository"
	"coopfund/internal/services"
)

// GovernanceHandler exposes the proposal lifecycle.
type GovernanceHandler struct {
	governance *services.GovernanceService
	repo       *repository.Repository
}

func NewGovernanceHandler(governance *services.GovernanceService, repo *repository.Repository) *GovernanceHandler {
	return &GovernanceHandler{
		governance: governance,
		repo:       repo,
	}
}

// Submit creates a proposal and runs the initial screening
// POST /api/proposals
func (h *GovernanceHandler) Submit(c *gin.Context) {
	wallet, _ := auth.GetWalletAddress(c)

	var req models.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.governance.SubmitProposal(c.Request.Context(), wallet, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proposal": proposal})
}

// Get returns one proposal
// GET /api/proposals/:id
func (h *GovernanceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	proposal, err := h.governance.GetProposal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	tally, err := h.governance.Tally(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposal": proposal,
		"tally":    tally,
	})
}

// List returns proposals, optionally filtered by status
// GET /api/proposals?status=VOTABLE
func (h *GovernanceHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := models.ProposalStatus(c.Query("status"))

	proposals, total, err := h.repo.ListProposals(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list proposals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// Withdraw lets the proposer pull their own undecided proposal
// POST /api/proposals/:id/withdraw
func (h *GovernanceHandler) Withdraw(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	wallet, _ := auth.GetWalletAddress(c)

	proposal, err := h.governance.WithdrawProposal(c.Request.Context(), id, wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Vote casts or changes a council vote
// POST /api/ops/proposals/:id/vote
func (h *GovernanceHandler) Vote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	wallet, _ := auth.GetWalletAddress(c)

	var req models.CouncilVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, tally, err := h.governance.CouncilVote(c.Request.Context(), id, wallet, req.Vote)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposal": proposal,
		"tally":    tally,
	})
}

// Votes lists council votes on a proposal
// GET /api/ops/proposals/:id/votes
func (h *GovernanceHandler) Votes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	votes, err := h.repo.ListVotes(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list votes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

// Evaluate retries screening for a proposal stuck in SUBMITTED
// POST /api/ops/proposals/:id/evaluate
func (h *GovernanceHandler) Evaluate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	proposal, err := h.governance.EvaluateProposal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Fund disburses an approved proposal's budget
// POST /api/treasury/proposals/:id/fund
func (h *GovernanceHandler) Fund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	operator, _ := auth.GetWalletAddress(c)

	proposal, err := h.governance.FundProposal(c.Request.Context(), id, operator)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Fail marks an approved or funded proposal as failed
// POST /api/admin/proposals/:id/fail
func (h *GovernanceHandler) Fail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	actor, _ := auth.GetWalletAddress(c)

	var req models.FailProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.governance.MarkProposalFailed(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}
