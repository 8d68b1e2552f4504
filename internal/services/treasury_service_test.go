package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"coopfund/internal/models"
)

func TestWithdrawToTreasury(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewTreasuryService(db, ledger)
	ctx := context.Background()

	if err := ledger.Mint(ctx, models.VaultWallet, dec("500"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if err := svc.WithdrawToTreasury(ctx, dec("200"), models.TreasuryWallet, "treasurer"); err != nil {
		t.Fatalf("WithdrawToTreasury failed: %v", err)
	}

	vault, _ := svc.VaultBalance(ctx)
	treasury, _ := ledger.Balance(ctx, models.TreasuryWallet)
	if !vault.Equal(dec("300")) {
		t.Errorf("expected vault 300, got %s", vault)
	}
	if !treasury.Equal(dec("200")) {
		t.Errorf("expected treasury 200, got %s", treasury)
	}
}

func TestWithdrawValidation(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewTreasuryService(db, ledger)
	ctx := context.Background()

	if err := ledger.Mint(ctx, models.VaultWallet, dec("10"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if err := svc.WithdrawToTreasury(ctx, dec("1"), "", "treasurer"); !errors.Is(err, ErrZeroAddress) {
		t.Errorf("empty destination: expected ErrZeroAddress, got %v", err)
	}
	if err := svc.WithdrawToTreasury(ctx, decimal.Zero, models.TreasuryWallet, "treasurer"); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("zero amount: expected ErrZeroAmount, got %v", err)
	}
	if err := svc.WithdrawToTreasury(ctx, dec("10.01"), models.TreasuryWallet, "treasurer"); !errors.Is(err, ErrInsufficientVaultBalance) {
		t.Errorf("overdraw: expected ErrInsufficientVaultBalance, got %v", err)
	}

	// Failed withdrawals leave the vault untouched
	vault, _ := svc.VaultBalance(ctx)
	if !vault.Equal(dec("10")) {
		t.Errorf("expected vault 10, got %s", vault)
	}
}

func TestEmergencyWithdrawIsAudited(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewTreasuryService(db, ledger)
	ctx := context.Background()

	if err := ledger.Mint(ctx, models.VaultWallet, dec("100"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if err := svc.EmergencyWithdraw(ctx, dec("100"), "incident-wallet", "admin"); err != nil {
		t.Fatalf("EmergencyWithdraw failed: %v", err)
	}

	var entry models.AuditLog
	if err := db.Where("action = ?", "EMERGENCY_WITHDRAW").First(&entry).Error; err != nil {
		t.Fatalf("expected an EMERGENCY_WITHDRAW audit record: %v", err)
	}
	if entry.ActorWallet != "admin" {
		t.Errorf("expected actor admin, got %s", entry.ActorWallet)
	}
}
