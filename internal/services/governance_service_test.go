package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coopfund/internal/models"
	"coopfund/internal/scoring"
)

// fakeEngine returns a canned screening verdict
type fakeEngine struct {
	decision scoring.Decision
	err      error
	calls    int
}

func (e *fakeEngine) Evaluate(_ context.Context, _ scoring.Input, _ map[string]interface{}) (*scoring.Evaluation, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &scoring.Evaluation{
		Decision:         e.decision,
		AlignmentScore:   0.8,
		FeasibilityScore: 0.7,
		CompositeScore:   0.75,
	}, nil
}

type governanceFixture struct {
	db     *gorm.DB
	engine *fakeEngine
	rail   *fakeRail
	svc    *GovernanceService
}

func newGovernanceFixture(t *testing.T) *governanceFixture {
	db := setupTestDB(t)
	engine := &fakeEngine{decision: scoring.DecisionAdvance}
	rail := &fakeRail{balance: dec("1000000")}
	svc := NewGovernanceService(db, engine, rail)
	return &governanceFixture{db: db, engine: engine, rail: rail, svc: svc}
}

func (f *governanceFixture) submit(t *testing.T, wallet, budget string) *models.Proposal {
	proposal, err := f.svc.SubmitProposal(context.Background(), wallet, &models.SubmitProposalRequest{
		Title:        "Community garden",
		Summary:      "Raised beds behind the hall",
		Category:     "infrastructure",
		BudgetAmount: dec(budget),
	})
	if err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}
	return proposal
}

func TestAutoApproveBoundary(t *testing.T) {
	f := newGovernanceFixture(t)

	// Just under the default 5000 council threshold: approved outright
	small := f.submit(t, "alice", "4999.99")
	if small.Status != models.ProposalStatusApproved {
		t.Errorf("expected APPROVED under threshold, got %s", small.Status)
	}
	if small.CouncilRequired {
		t.Error("small budget must not require council")
	}

	// At the threshold: council voting opens
	large := f.submit(t, "alice", "5000")
	if large.Status != models.ProposalStatusVotable {
		t.Errorf("expected VOTABLE at threshold, got %s", large.Status)
	}
	if !large.CouncilRequired {
		t.Error("threshold budget must require council")
	}
}

func TestThresholdSnapshotFromActiveConfig(t *testing.T) {
	f := newGovernanceFixture(t)

	f.db.Create(&models.CoopConfig{
		Version:                 3,
		IsActive:                true,
		CouncilVoteThresholdUSD: dec("200"),
	})

	proposal := f.submit(t, "alice", "250")
	if !proposal.CouncilVoteThreshold.Equal(dec("200")) {
		t.Errorf("expected snapshotted threshold 200, got %s", proposal.CouncilVoteThreshold)
	}
	if proposal.Status != models.ProposalStatusVotable {
		t.Errorf("expected VOTABLE over the configured threshold, got %s", proposal.Status)
	}
}

func TestUnsetConfigThresholdUsesDefault(t *testing.T) {
	f := newGovernanceFixture(t)

	// Active config with the threshold left unset must not council-gate
	// every proposal
	f.db.Create(&models.CoopConfig{
		Version:  2,
		IsActive: true,
	})

	proposal := f.submit(t, "alice", "100")
	if !proposal.CouncilVoteThreshold.Equal(dec("5000")) {
		t.Errorf("expected default threshold 5000, got %s", proposal.CouncilVoteThreshold)
	}
	if proposal.Status != models.ProposalStatusApproved {
		t.Errorf("expected APPROVED under the default threshold, got %s", proposal.Status)
	}
}

func TestProposerRoleSnapshot(t *testing.T) {
	f := newGovernanceFixture(t)

	plain := f.submit(t, "alice", "100")
	if plain.ProposerRole != "MEMBER" {
		t.Errorf("expected MEMBER for an ungranted wallet, got %s", plain.ProposerRole)
	}

	f.db.Create(&models.RoleGrant{Wallet: "bob", Role: models.RoleBackend, GrantedBy: "admin"})
	f.db.Create(&models.RoleGrant{Wallet: "bob", Role: models.RoleTreasurer, GrantedBy: "admin"})

	privileged := f.submit(t, "bob", "100")
	if privileged.ProposerRole != string(models.RoleTreasurer) {
		t.Errorf("expected highest-privilege role TREASURER, got %s", privileged.ProposerRole)
	}
}

func TestReviseAndBlockHoldSubmitted(t *testing.T) {
	f := newGovernanceFixture(t)

	for _, decision := range []scoring.Decision{scoring.DecisionRevise, scoring.DecisionBlock} {
		f.engine.decision = decision
		proposal := f.submit(t, "alice", "100")
		if proposal.Status != models.ProposalStatusSubmitted {
			t.Errorf("decision %s: expected SUBMITTED, got %s", decision, proposal.Status)
		}
		if proposal.Decision == nil || *proposal.Decision != models.ProposalDecision(decision) {
			t.Errorf("decision %s: expected recorded decision, got %v", decision, proposal.Decision)
		}
	}
}

func TestScreeningFailureIsRetryable(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()

	f.engine.err = errors.New("scoring service down")
	proposal := f.submit(t, "alice", "100")
	if proposal.Status != models.ProposalStatusSubmitted {
		t.Fatalf("expected SUBMITTED after screening failure, got %s", proposal.Status)
	}
	if proposal.CompositeScore != nil {
		t.Error("failed screening must not record scores")
	}

	// Retry once the scorer recovers
	f.engine.err = nil
	evaluated, err := f.svc.EvaluateProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("EvaluateProposal retry failed: %v", err)
	}
	if evaluated.Status != models.ProposalStatusApproved {
		t.Errorf("expected APPROVED on retry, got %s", evaluated.Status)
	}

	// Re-screening a decided proposal is refused
	if _, err := f.svc.EvaluateProposal(ctx, proposal.ID); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition, got %v", err)
	}
}

func TestCouncilVoteTally(t *testing.T) {
	cases := []struct {
		name  string
		votes []models.VoteChoice
		want  models.ProposalStatus
	}{
		{"two for approves", []models.VoteChoice{models.VoteFor, models.VoteFor}, models.ProposalStatusApproved},
		{"two against rejects", []models.VoteChoice{models.VoteAgainst, models.VoteAgainst}, models.ProposalStatusRejected},
		{"tie stays open", []models.VoteChoice{models.VoteFor, models.VoteAgainst}, models.ProposalStatusVotable},
		{"abstains count toward quorum", []models.VoteChoice{models.VoteAbstain, models.VoteAbstain, models.VoteFor}, models.ProposalStatusApproved},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGovernanceFixture(t)
			ctx := context.Background()
			proposal := f.submit(t, "alice", "9000")

			var got *models.Proposal
			for i, choice := range tc.votes {
				voter := []string{"council1", "council2", "council3"}[i]
				var err error
				got, _, err = f.svc.CouncilVote(ctx, proposal.ID, voter, choice)
				if err != nil {
					t.Fatalf("vote %d failed: %v", i, err)
				}
			}
			if got.Status != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got.Status)
			}
		})
	}
}

func TestSingleVoteBelowQuorumHoldsOpen(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()
	proposal := f.submit(t, "alice", "9000")

	got, tally, err := f.svc.CouncilVote(ctx, proposal.ID, "council1", models.VoteFor)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if tally.Total() != 1 {
		t.Errorf("expected 1 vote, got %d", tally.Total())
	}
	if got.Status != models.ProposalStatusVotable {
		t.Errorf("expected VOTABLE below quorum, got %s", got.Status)
	}
}

func TestRevoteOverwrites(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()
	proposal := f.submit(t, "alice", "9000")

	if _, _, err := f.svc.CouncilVote(ctx, proposal.ID, "council1", models.VoteAgainst); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	_, tally, err := f.svc.CouncilVote(ctx, proposal.ID, "council1", models.VoteFor)
	if err != nil {
		t.Fatalf("re-vote failed: %v", err)
	}
	if tally.For != 1 || tally.Against != 0 || tally.Total() != 1 {
		t.Errorf("re-vote must overwrite, got %+v", tally)
	}
}

func TestVoteOnDecidedProposal(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()

	proposal := f.submit(t, "alice", "100") // auto-approved
	if _, _, err := f.svc.CouncilVote(ctx, proposal.ID, "council1", models.VoteFor); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
}

func TestWithdrawProposalGuards(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()

	votable := f.submit(t, "alice", "9000")

	// Only the proposer may withdraw
	if _, err := f.svc.WithdrawProposal(ctx, votable.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	withdrawn, err := f.svc.WithdrawProposal(ctx, votable.ID, "alice")
	if err != nil {
		t.Fatalf("WithdrawProposal failed: %v", err)
	}
	if withdrawn.Status != models.ProposalStatusWithdrawn {
		t.Errorf("expected WITHDRAWN, got %s", withdrawn.Status)
	}
	if withdrawn.WithdrawnBy == nil || *withdrawn.WithdrawnBy != "alice" {
		t.Errorf("expected withdrawn_by alice, got %v", withdrawn.WithdrawnBy)
	}

	// Approved proposals are past the point of withdrawal
	approved := f.submit(t, "alice", "100")
	if _, err := f.svc.WithdrawProposal(ctx, approved.ID, "alice"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition for approved proposal, got %v", err)
	}
}

func TestFundProposal(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()

	proposal := f.submit(t, "alice", "100") // auto-approved

	// Disbursement failure leaves the proposal approved and retryable
	f.rail.payoutErr = errors.New("rpc timeout")
	if _, err := f.svc.FundProposal(ctx, proposal.ID, "treasurer"); err == nil {
		t.Fatal("expected rail failure to surface")
	}
	got, _ := f.svc.GetProposal(ctx, proposal.ID)
	if got.Status != models.ProposalStatusApproved {
		t.Fatalf("expected APPROVED after rail failure, got %s", got.Status)
	}

	f.rail.payoutErr = nil
	funded, err := f.svc.FundProposal(ctx, proposal.ID, "treasurer")
	if err != nil {
		t.Fatalf("FundProposal failed: %v", err)
	}
	if funded.Status != models.ProposalStatusFunded {
		t.Errorf("expected FUNDED, got %s", funded.Status)
	}
	if funded.FundingTxRef == nil || *funded.FundingTxRef == "" {
		t.Error("expected a funding tx ref")
	}
	if len(f.rail.payouts) != 1 || !f.rail.payouts[0].Equal(dec("100")) {
		t.Errorf("expected one payout of 100, got %v", f.rail.payouts)
	}

	// Funding twice is refused
	if _, err := f.svc.FundProposal(ctx, proposal.ID, "treasurer"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition on double fund, got %v", err)
	}
}

func TestMarkProposalFailed(t *testing.T) {
	f := newGovernanceFixture(t)
	ctx := context.Background()

	proposal := f.submit(t, "alice", "100") // auto-approved

	if _, err := f.svc.MarkProposalFailed(ctx, proposal.ID, "", "admin"); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	failed, err := f.svc.MarkProposalFailed(ctx, proposal.ID, "grantee unresponsive", "admin")
	if err != nil {
		t.Fatalf("MarkProposalFailed failed: %v", err)
	}
	if failed.Status != models.ProposalStatusFailed {
		t.Errorf("expected FAILED, got %s", failed.Status)
	}
	if failed.FailReason == nil || *failed.FailReason != "grantee unresponsive" {
		t.Errorf("expected stored reason, got %v", failed.FailReason)
	}

	// Undecided proposals cannot be failed
	f.engine.decision = scoring.DecisionRevise
	held := f.submit(t, "bob", "100")
	if _, err := f.svc.MarkProposalFailed(ctx, held.ID, "reason", "admin"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition for submitted proposal, got %v", err)
	}
}

func TestGetProposalNotFound(t *testing.T) {
	f := newGovernanceFixture(t)

	if _, err := f.svc.GetProposal(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
