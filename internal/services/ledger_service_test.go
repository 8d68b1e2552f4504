package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coopfund/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// :memory: is unique per connection unless using cache=shared, so every
	// test wipes the shared tables it touches.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.LedgerAccount{},
		&models.LedgerEntry{},
		&models.Member{},
		&models.RedemptionRequest{},
		&models.VaultReserve{},
		&models.Proposal{},
		&models.ProposalVote{},
		&models.CoopConfig{},
		&models.RoleGrant{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	for _, table := range []string{
		"ledger_accounts", "ledger_entries", "members", "redemption_requests",
		"vault_reserve", "proposals", "proposal_votes", "coop_configs",
		"role_grants", "audit_logs",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLedgerMintBurnConservation(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "walletA", dec("100"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := ledger.Mint(ctx, "walletB", dec("50.5"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	supply, err := ledger.TotalSupply(ctx)
	if err != nil {
		t.Fatalf("TotalSupply failed: %v", err)
	}
	if !supply.Equal(dec("150.5")) {
		t.Errorf("expected supply 150.5, got %s", supply)
	}

	if err := ledger.Burn(ctx, "walletB", dec("50.5"), "system"); err != nil {
		t.Fatalf("Burn failed: %v", err)
	}

	supply, _ = ledger.TotalSupply(ctx)
	if !supply.Equal(dec("100")) {
		t.Errorf("expected supply 100 after burn, got %s", supply)
	}
}

func TestLedgerTransferConservation(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "walletA", dec("30"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	before, _ := ledger.TotalSupply(ctx)

	if err := ledger.Transfer(ctx, "walletA", "walletB", dec("12.25"), "walletA"); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	a, _ := ledger.Balance(ctx, "walletA")
	b, _ := ledger.Balance(ctx, "walletB")
	if !a.Equal(dec("17.75")) {
		t.Errorf("expected walletA 17.75, got %s", a)
	}
	if !b.Equal(dec("12.25")) {
		t.Errorf("expected walletB 12.25, got %s", b)
	}

	after, _ := ledger.TotalSupply(ctx)
	if !before.Equal(after) {
		t.Errorf("transfer changed total supply: %s -> %s", before, after)
	}
}

func TestLedgerInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "walletA", dec("5"), "system"); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	err := ledger.Transfer(ctx, "walletA", "walletB", dec("5.000000000000000001"), "walletA")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The failed transfer must leave balances untouched
	a, _ := ledger.Balance(ctx, "walletA")
	b, _ := ledger.Balance(ctx, "walletB")
	if !a.Equal(dec("5")) {
		t.Errorf("expected walletA 5, got %s", a)
	}
	if !b.IsZero() {
		t.Errorf("expected walletB 0, got %s", b)
	}
}

func TestLedgerUnknownWalletIsZero(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	balance, err := ledger.Balance(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero balance for unknown wallet, got %s", balance)
	}
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "walletA", decimal.Zero, "system"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Mint zero: expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Burn(ctx, "walletA", dec("-1"), "system"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Burn negative: expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Transfer(ctx, "a", "b", decimal.Zero, "a"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Transfer zero: expected ErrInvalidAmount, got %v", err)
	}
}
