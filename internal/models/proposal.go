package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalStatusSubmitted ProposalStatus = "SUBMITTED"
	ProposalStatusVotable   ProposalStatus = "VOTABLE"
	ProposalStatusApproved  ProposalStatus = "APPROVED"
	ProposalStatusRejected  ProposalStatus = "REJECTED"
	ProposalStatusFunded    ProposalStatus = "FUNDED"
	ProposalStatusFailed    ProposalStatus = "FAILED"
	ProposalStatusWithdrawn ProposalStatus = "WITHDRAWN"
)

type ProposalDecision string

const (
	ProposalDecisionAdvance ProposalDecision = "advance"
	ProposalDecisionRevise  ProposalDecision = "revise"
	ProposalDecisionBlock   ProposalDecision = "block"
)

type VoteChoice string

const (
	VoteFor     VoteChoice = "FOR"
	VoteAgainst VoteChoice = "AGAINST"
	VoteAbstain VoteChoice = "ABSTAIN"
)

// Proposal is a community funding request moving through AI screening,
// council voting and treasury disbursement. Governance thresholds are
// snapshotted from the active CoopConfig at creation time.
type Proposal struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string            `gorm:"size:500;not null" json:"title"`
	Summary        string            `gorm:"type:text" json:"summary"`
	Category       string            `gorm:"size:50;not null;index" json:"category"`
	ProposerWallet string            `gorm:"size:255;not null;index" json:"proposer_wallet"`
	ProposerRole   string            `gorm:"size:50" json:"proposer_role"`
	BudgetCurrency string            `gorm:"size:10;not null;default:USD" json:"budget_currency"`
	BudgetAmount   decimal.Decimal   `gorm:"type:decimal(20,6);not null" json:"budget_amount"`
	Status         ProposalStatus    `gorm:"size:20;not null;default:SUBMITTED;index" json:"status"`
	Decision       *ProposalDecision `gorm:"size:20" json:"decision,omitempty"`

	// Screening scores, all in [0,1]
	AlignmentScore   *float64 `gorm:"type:decimal(5,4)" json:"alignment_score,omitempty"`
	FeasibilityScore *float64 `gorm:"type:decimal(5,4)" json:"feasibility_score,omitempty"`
	CompositeScore   *float64 `gorm:"type:decimal(5,4)" json:"composite_score,omitempty"`

	CouncilRequired bool `gorm:"not null;default:false" json:"council_required"`

	// Thresholds snapshotted from the active CoopConfig at submission.
	// QuorumPercent is a passthrough for the broad membership vote; council
	// auto-decision uses the fixed 2-vote gate instead.
	CouncilVoteThreshold     decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"council_vote_threshold"`
	QuorumPercent            int             `gorm:"not null;default:0" json:"quorum_percent"`
	ApprovalThresholdPercent int             `gorm:"not null;default:0" json:"approval_threshold_percent"`
	VotingWindowDays         int             `gorm:"not null;default:0" json:"voting_window_days"`

	WithdrawnAt  *time.Time `json:"withdrawn_at,omitempty"`
	WithdrawnBy  *string    `gorm:"size:255" json:"withdrawn_by,omitempty"`
	FailReason   *string    `gorm:"type:text" json:"fail_reason,omitempty"`
	FundingTxRef *string    `gorm:"size:255" json:"funding_tx_ref,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	FundedAt     *time.Time `json:"funded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// ProposalVote is one council vote; unique per (proposal, voter) — re-voting
// overwrites the previous choice.
type ProposalVote struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_proposal_voter" json:"proposal_id"`
	VoterWallet string     `gorm:"size:255;not null;uniqueIndex:idx_proposal_voter" json:"voter_wallet"`
	Vote        VoteChoice `gorm:"size:10;not null" json:"vote"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ProposalVote) TableName() string {
	return "proposal_votes"
}

// VoteTally holds a point-in-time count of council votes
type VoteTally struct {
	For     int64 `json:"for"`
	Against int64 `json:"against"`
	Abstain int64 `json:"abstain"`
}

func (t VoteTally) Total() int64 {
	return t.For + t.Against + t.Abstain
}

// CoopConfig is the versioned, externally-managed governance configuration.
// Read-only to this core; proposals consume an immutable snapshot.
type CoopConfig struct {
	ID                       uint            `gorm:"primaryKey" json:"id"`
	Version                  int             `gorm:"uniqueIndex;not null" json:"version"`
	IsActive                 bool            `gorm:"not null;default:false;index" json:"is_active"`
	ScoringWeights           JSONB           `gorm:"type:jsonb" json:"scoring_weights"`
	Categories               JSONB           `gorm:"type:jsonb" json:"categories"`
	CouncilVoteThresholdUSD  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"council_vote_threshold_usd"`
	QuorumPercent            int             `gorm:"not null;default:0" json:"quorum_percent"`
	ApprovalThresholdPercent int             `gorm:"not null;default:0" json:"approval_threshold_percent"`
	VotingWindowDays         int             `gorm:"not null;default:0" json:"voting_window_days"`
	CreatedAt                time.Time       `json:"created_at"`
}

func (CoopConfig) TableName() string {
	return "coop_configs"
}

// SubmitProposalRequest is the API payload for submitting a proposal
type SubmitProposalRequest struct {
	Title          string          `json:"title" binding:"required"`
	Summary        string          `json:"summary"`
	Category       string          `json:"category" binding:"required"`
	BudgetCurrency string          `json:"budget_currency"`
	BudgetAmount   decimal.Decimal `json:"budget_amount" binding:"required"`
}

// CouncilVoteRequest is the API payload for casting a council vote
type CouncilVoteRequest struct {
	Vote VoteChoice `json:"vote" binding:"required"`
}

// FailProposalRequest carries the mandatory failure reason
type FailProposalRequest struct {
	Reason string `json:"reason" binding:"required"`
}
