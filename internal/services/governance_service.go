package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"coopfund/internal/custody"
	"coopfund/internal/models"
	"coopfund/internal/scoring"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultCouncilThresholdUSD applies when no active config row exists or the
// active row leaves the threshold unset.
var defaultCouncilThresholdUSD = decimal.NewFromInt(5000)

// councilQuorum is the fixed number of council votes required before a
// proposal auto-decides. Percentage quorum fields are snapshotted for the
// broad membership vote, which lives outside this service.
const councilQuorum = 2

// GovernanceService runs the proposal lifecycle: AI screening on submission,
// council voting for large budgets, treasury disbursement on approval.
type GovernanceService struct {
	db     *gorm.DB
	engine scoring.Engine
	rail   custody.Rail
	mu     sync.Mutex
}

func NewGovernanceService(db *gorm.DB, engine scoring.Engine, rail custody.Rail) *GovernanceService {
	return &GovernanceService{db: db, engine: engine, rail: rail}
}

// SubmitProposal creates a proposal with thresholds snapshotted from the
// active config, then attempts screening. A screening failure is not fatal:
// the proposal stays SUBMITTED and EvaluateProposal can retry it.
func (s *GovernanceService) SubmitProposal(ctx context.Context, wallet string, req *models.SubmitProposalRequest) (*models.Proposal, error) {
	if !req.BudgetAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	currency := req.BudgetCurrency
	if currency == "" {
		currency = "USD"
	}

	role, err := s.proposerRole(ctx, wallet)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	proposal := &models.Proposal{
		ID:                       uuid.New(),
		Title:                    req.Title,
		Summary:                  req.Summary,
		Category:                 req.Category,
		ProposerWallet:           wallet,
		ProposerRole:             role,
		BudgetCurrency:           currency,
		BudgetAmount:             req.BudgetAmount,
		Status:                   models.ProposalStatusSubmitted,
		CouncilVoteThreshold:     cfg.CouncilVoteThresholdUSD,
		QuorumPercent:            cfg.QuorumPercent,
		ApprovalThresholdPercent: cfg.ApprovalThresholdPercent,
		VotingWindowDays:         cfg.VotingWindowDays,
	}

	ref := proposal.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(proposal).Error; err != nil {
			return fmt.Errorf("failed to create proposal: %w", err)
		}
		return auditTx(tx, wallet, "SUBMIT_PROPOSAL", "PROPOSAL", &ref, map[string]interface{}{
			"budget": req.BudgetAmount.String(),
		})
	})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	evaluated, err := s.EvaluateProposal(ctx, proposal.ID)
	if err != nil {
		log.Printf("Screening for proposal %s failed, left SUBMITTED: %v", proposal.ID, err)
		return proposal, nil
	}
	return evaluated, nil
}

// EvaluateProposal screens a SUBMITTED proposal and routes it: advance with a
// budget under the council threshold approves outright, advance at or above
// it opens council voting, revise and block record the decision and hold the
// proposal in SUBMITTED.
func (s *GovernanceService) EvaluateProposal(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusSubmitted {
		return nil, ErrBadTransition
	}

	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}

	eval, err := s.engine.Evaluate(ctx, scoring.Input{
		Title:          proposal.Title,
		Summary:        proposal.Summary,
		Category:       proposal.Category,
		BudgetCurrency: proposal.BudgetCurrency,
		BudgetAmount:   proposal.BudgetAmount,
	}, cfg.ScoringWeights)
	if err != nil {
		return nil, fmt.Errorf("screening failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	decision := models.ProposalDecision(eval.Decision)
	updates := map[string]interface{}{
		"decision":          decision,
		"alignment_score":   eval.AlignmentScore,
		"feasibility_score": eval.FeasibilityScore,
		"composite_score":   eval.CompositeScore,
	}

	now := time.Now()
	switch {
	case decision == models.ProposalDecisionAdvance && proposal.BudgetAmount.LessThan(proposal.CouncilVoteThreshold):
		updates["status"] = models.ProposalStatusApproved
		updates["decided_at"] = now
	case decision == models.ProposalDecisionAdvance:
		updates["status"] = models.ProposalStatusVotable
		updates["council_required"] = true
	}

	ref := proposal.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", proposalID, models.ProposalStatusSubmitted).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBadTransition
		}
		return auditTx(tx, "system", "EVALUATE_PROPOSAL", "PROPOSAL", &ref, map[string]interface{}{
			"decision":  string(decision),
			"composite": eval.CompositeScore,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Proposal %s screened: decision=%s composite=%.2f", proposalID, decision, eval.CompositeScore)
	return s.GetProposal(ctx, proposalID)
}

// CouncilVote records one vote per (proposal, voter); re-voting overwrites.
// After each vote the tally is recounted and, once at least two votes are in,
// a FOR majority approves and an AGAINST majority rejects. A tie holds the
// proposal open.
func (s *GovernanceService) CouncilVote(ctx context.Context, proposalID uuid.UUID, voter string, choice models.VoteChoice) (*models.Proposal, *models.VoteTally, error) {
	switch choice {
	case models.VoteFor, models.VoteAgainst, models.VoteAbstain:
	default:
		return nil, nil, fmt.Errorf("invalid vote choice: %s", choice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if proposal.Status != models.ProposalStatusVotable {
		return nil, nil, ErrBadTransition
	}

	var tally models.VoteTally
	ref := proposal.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := models.ProposalVote{
			ID:          uuid.New(),
			ProposalID:  proposalID,
			VoterWallet: voter,
			Vote:        choice,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "voter_wallet"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"vote": choice, "updated_at": time.Now()}),
		}).Create(&vote).Error; err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		t, err := s.tallyTx(tx, proposalID)
		if err != nil {
			return err
		}
		tally = *t

		if err := auditTx(tx, voter, "COUNCIL_VOTE", "PROPOSAL", &ref, map[string]interface{}{
			"vote": string(choice),
		}); err != nil {
			return err
		}

		if tally.Total() < councilQuorum {
			return nil
		}

		var target models.ProposalStatus
		switch {
		case tally.For > tally.Against:
			target = models.ProposalStatusApproved
		case tally.Against > tally.For:
			target = models.ProposalStatusRejected
		default:
			return nil
		}

		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", proposalID, models.ProposalStatusVotable).
			Updates(map[string]interface{}{
				"status":     target,
				"decided_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		// A concurrent decider already landed the same outcome; the vote
		// itself still counts.
		if result.RowsAffected > 0 {
			log.Printf("Proposal %s council-decided %s (%d-%d-%d)", proposalID, target, tally.For, tally.Against, tally.Abstain)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	proposal, err = s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	return proposal, &tally, nil
}

// Tally returns the current council vote counts for a proposal.
func (s *GovernanceService) Tally(ctx context.Context, proposalID uuid.UUID) (*models.VoteTally, error) {
	var tally *models.VoteTally
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tally, err = s.tallyTx(tx, proposalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tally, nil
}

func (s *GovernanceService) tallyTx(tx *gorm.DB, proposalID uuid.UUID) (*models.VoteTally, error) {
	var rows []struct {
		Vote  models.VoteChoice
		Count int64
	}
	if err := tx.Model(&models.ProposalVote{}).
		Select("vote, COUNT(*) as count").
		Where("proposal_id = ?", proposalID).
		Group("vote").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	tally := &models.VoteTally{}
	for _, row := range rows {
		switch row.Vote {
		case models.VoteFor:
			tally.For = row.Count
		case models.VoteAgainst:
			tally.Against = row.Count
		case models.VoteAbstain:
			tally.Abstain = row.Count
		}
	}
	return tally, nil
}

// WithdrawProposal lets the proposer pull their own proposal before it is
// decided. Anyone else gets Forbidden regardless of role.
func (s *GovernanceService) WithdrawProposal(ctx context.Context, proposalID uuid.UUID, caller string) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProposerWallet != caller {
		return nil, ErrForbidden
	}
	if proposal.Status != models.ProposalStatusSubmitted && proposal.Status != models.ProposalStatusVotable {
		return nil, ErrBadTransition
	}

	now := time.Now()
	ref := proposal.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status IN ?", proposalID,
				[]models.ProposalStatus{models.ProposalStatusSubmitted, models.ProposalStatusVotable}).
			Updates(map[string]interface{}{
				"status":       models.ProposalStatusWithdrawn,
				"withdrawn_at": now,
				"withdrawn_by": caller,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBadTransition
		}
		return auditTx(tx, caller, "WITHDRAW_PROPOSAL", "PROPOSAL", &ref, nil)
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = models.ProposalStatusWithdrawn
	proposal.WithdrawnAt = &now
	proposal.WithdrawnBy = &caller
	return proposal, nil
}

// FundProposal disburses the approved budget to the proposer over the
// settlement rail and moves the proposal to FUNDED. A rail failure leaves it
// APPROVED and retryable.
func (s *GovernanceService) FundProposal(ctx context.Context, proposalID uuid.UUID, operator string) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusApproved {
		return nil, ErrBadTransition
	}

	txRef, err := s.rail.PayOut(ctx, proposal.ProposerWallet, proposal.BudgetAmount)
	if err != nil {
		return nil, fmt.Errorf("disbursement failed, proposal remains approved: %w", err)
	}

	now := time.Now()
	ref := proposal.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", proposalID, models.ProposalStatusApproved).
			Updates(map[string]interface{}{
				"status":         models.ProposalStatusFunded,
				"funding_tx_ref": txRef,
				"funded_at":      now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBadTransition
		}
		return auditTx(tx, operator, "FUND_PROPOSAL", "PROPOSAL", &ref, map[string]interface{}{
			"budget":         proposal.BudgetAmount.String(),
			"funding_tx_ref": txRef,
		})
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = models.ProposalStatusFunded
	proposal.FundingTxRef = &txRef
	proposal.FundedAt = &now

	log.Printf("Proposal %s funded: %s %s to %s (%s)", proposalID, proposal.BudgetAmount, proposal.BudgetCurrency, proposal.ProposerWallet, txRef)
	return proposal, nil
}

// MarkProposalFailed records that an approved or funded effort fell through.
// Reason is mandatory.
func (s *GovernanceService) MarkProposalFailed(ctx context.Context, proposalID uuid.UUID, reason, actor string) (*models.Proposal, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusApproved && proposal.Status != models.ProposalStatusFunded {
		return nil, ErrBadTransition
	}

	ref := proposal.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status IN ?", proposalID,
				[]models.ProposalStatus{models.ProposalStatusApproved, models.ProposalStatusFunded}).
			Updates(map[string]interface{}{
				"status":      models.ProposalStatusFailed,
				"fail_reason": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBadTransition
		}
		return auditTx(tx, actor, "FAIL_PROPOSAL", "PROPOSAL", &ref, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = models.ProposalStatusFailed
	proposal.FailReason = &reason
	return proposal, nil
}

// GetProposal retrieves a proposal by ID
func (s *GovernanceService) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// proposerRole snapshots the submitter's highest-privilege role grant at
// submission time. Wallets without a grant are plain members.
func (s *GovernanceService) proposerRole(ctx context.Context, wallet string) (string, error) {
	var grants []models.RoleGrant
	if err := s.db.WithContext(ctx).Where("wallet = ?", wallet).Find(&grants).Error; err != nil {
		return "", fmt.Errorf("failed to load role grants: %w", err)
	}

	held := make(map[models.Role]bool, len(grants))
	for _, grant := range grants {
		held[grant.Role] = true
	}
	for _, role := range []models.Role{models.RoleAdmin, models.RoleTreasurer, models.RoleBackend} {
		if held[role] {
			return string(role), nil
		}
	}
	return "MEMBER", nil
}

// activeConfig returns the active governance config, or built-in defaults
// when none has been loaded yet.
func (s *GovernanceService) activeConfig(ctx context.Context) (*models.CoopConfig, error) {
	var cfg models.CoopConfig
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("version DESC").
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return &models.CoopConfig{CouncilVoteThresholdUSD: defaultCouncilThresholdUSD}, nil
	}
	if err != nil {
		return nil, err
	}
	// A threshold of zero would force every proposal into council voting;
	// an unset field means "use the default", not "council everything"
	if cfg.CouncilVoteThresholdUSD.IsZero() {
		cfg.CouncilVoteThresholdUSD = defaultCouncilThresholdUSD
	}
	return &cfg, nil
}
