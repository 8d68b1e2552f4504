package services

import (
	"context"
	"errors"
	"testing"

	"coopfund/internal/models"
)

func TestRegisterMemberMintsOnboardingGrant(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewMemberService(db, ledger, dec("100"))
	ctx := context.Background()

	member, err := svc.RegisterMember(ctx, "alice-wallet", "alice")
	if err != nil {
		t.Fatalf("RegisterMember failed: %v", err)
	}
	if member.Status != models.MemberStatusActive {
		t.Errorf("expected ACTIVE, got %s", member.Status)
	}

	balance, _ := ledger.Balance(ctx, "alice-wallet")
	if !balance.Equal(dec("100")) {
		t.Errorf("expected onboarding grant 100, got %s", balance)
	}

	supply, _ := ledger.TotalSupply(ctx)
	if !supply.Equal(dec("100")) {
		t.Errorf("expected supply 100, got %s", supply)
	}
}

func TestDuplicateWalletRejected(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewMemberService(db, ledger, dec("100"))
	ctx := context.Background()

	if _, err := svc.RegisterMember(ctx, "alice-wallet", "alice"); err != nil {
		t.Fatalf("RegisterMember failed: %v", err)
	}
	if _, err := svc.RegisterMember(ctx, "alice-wallet", "alice2"); err == nil {
		t.Fatal("expected duplicate wallet to fail")
	}

	// The failed registration must not mint
	supply, _ := ledger.TotalSupply(ctx)
	if !supply.Equal(dec("100")) {
		t.Errorf("expected supply unchanged at 100, got %s", supply)
	}
}

func TestSuspendReinstate(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewMemberService(db, ledger, dec("0"))
	ctx := context.Background()

	if _, err := svc.RegisterMember(ctx, "alice-wallet", "alice"); err != nil {
		t.Fatalf("RegisterMember failed: %v", err)
	}

	if err := svc.Suspend(ctx, "alice-wallet", "fraud review", "admin"); err != nil {
		t.Fatalf("Suspend failed: %v", err)
	}
	active, _ := svc.IsActiveMember(ctx, "alice-wallet")
	if active {
		t.Error("expected suspended member to be inactive")
	}

	// Suspending twice hits the status guard
	if err := svc.Suspend(ctx, "alice-wallet", "again", "admin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double suspend, got %v", err)
	}

	if err := svc.Reinstate(ctx, "alice-wallet", "admin"); err != nil {
		t.Fatalf("Reinstate failed: %v", err)
	}
	active, _ = svc.IsActiveMember(ctx, "alice-wallet")
	if !active {
		t.Error("expected reinstated member to be active")
	}
}

func TestIsActiveMemberUnknownWallet(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewMemberService(db, ledger, dec("0"))

	active, err := svc.IsActiveMember(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("IsActiveMember failed: %v", err)
	}
	if active {
		t.Error("unknown wallet must not be an active member")
	}
}
