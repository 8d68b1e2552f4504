package services

import (
	"context"
	"fmt"
	"log"

	"coopfund/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService is the reserve ledger: pure bookkeeping of reserve units.
// Every mutation writes a LedgerEntry in the same transaction, so the audit
// trail can never diverge from the balances.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Mint credits newly issued reserve units to a wallet (onboarding path).
func (s *LedgerService) Mint(ctx context.Context, to string, amount decimal.Decimal, actor string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.MintTx(tx, to, amount, actor, nil)
	})
}

// Burn destroys reserve units held by a wallet (fulfillment/forfeiture path).
func (s *LedgerService) Burn(ctx context.Context, from string, amount decimal.Decimal, actor string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.BurnTx(tx, from, amount, actor, nil)
	})
}

// Transfer moves reserve units between wallets (escrow lock and return).
func (s *LedgerService) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, actor string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TransferTx(tx, from, to, amount, actor, nil)
	})
}

// Balance returns a wallet's reserve-unit balance; unknown wallets hold zero.
func (s *LedgerService) Balance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	var account models.LedgerAccount
	err := s.db.WithContext(ctx).Where("wallet = ?", wallet).First(&account).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// TotalSupply returns the sum of all ledger balances. Supply only decreases
// via burn and increases via mint.
func (s *LedgerService) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := s.db.WithContext(ctx).Model(&models.LedgerAccount{}).
		Select("COALESCE(SUM(balance), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// MintTx applies a mint inside the caller's transaction.
func (s *LedgerService) MintTx(tx *gorm.DB, to string, amount decimal.Decimal, actor string, reference *string) error {
	if err := s.creditTx(tx, to, amount); err != nil {
		return err
	}
	entry := &models.LedgerEntry{
		ID:        uuid.New(),
		Kind:      models.LedgerEntryMint,
		ToWallet:  &to,
		Amount:    amount,
		Actor:     actor,
		Reference: reference,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record mint entry: %w", err)
	}
	log.Printf("Minted %s reserve units to %s (actor: %s)", amount, to, actor)
	return nil
}

// BurnTx applies a burn inside the caller's transaction.
func (s *LedgerService) BurnTx(tx *gorm.DB, from string, amount decimal.Decimal, actor string, reference *string) error {
	if err := s.debitTx(tx, from, amount); err != nil {
		return err
	}
	entry := &models.LedgerEntry{
		ID:         uuid.New(),
		Kind:       models.LedgerEntryBurn,
		FromWallet: &from,
		Amount:     amount,
		Actor:      actor,
		Reference:  reference,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record burn entry: %w", err)
	}
	log.Printf("Burned %s reserve units from %s (actor: %s)", amount, from, actor)
	return nil
}

// TransferTx applies a transfer inside the caller's transaction.
func (s *LedgerService) TransferTx(tx *gorm.DB, from, to string, amount decimal.Decimal, actor string, reference *string) error {
	if err := s.debitTx(tx, from, amount); err != nil {
		return err
	}
	if err := s.creditTx(tx, to, amount); err != nil {
		return err
	}
	entry := &models.LedgerEntry{
		ID:         uuid.New(),
		Kind:       models.LedgerEntryTransfer,
		FromWallet: &from,
		ToWallet:   &to,
		Amount:     amount,
		Actor:      actor,
		Reference:  reference,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record transfer entry: %w", err)
	}
	return nil
}

// creditTx adds to a wallet balance, creating the account on first touch.
func (s *LedgerService) creditTx(tx *gorm.DB, wallet string, amount decimal.Decimal) error {
	account := models.LedgerAccount{Wallet: wallet, Balance: decimal.Zero}
	if err := tx.Where("wallet = ?", wallet).FirstOrCreate(&account).Error; err != nil {
		return fmt.Errorf("failed to load account %s: %w", wallet, err)
	}

	result := tx.Model(&models.LedgerAccount{}).
		Where("wallet = ?", wallet).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to credit %s: %w", wallet, result.Error)
	}
	return nil
}

// debitTx subtracts from a wallet balance. The balance guard in the WHERE
// clause makes check-and-debit a single atomic statement, so the balance can
// never go negative even under concurrent debits.
func (s *LedgerService) debitTx(tx *gorm.DB, wallet string, amount decimal.Decimal) error {
	result := tx.Model(&models.LedgerAccount{}).
		Where("wallet = ? AND balance >= ?", wallet, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to debit %s: %w", wallet, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
