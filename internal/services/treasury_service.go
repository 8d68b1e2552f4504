package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"coopfund/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TreasuryService handles privileged extraction of vault balance to
// operational destinations. A separate permission tier from redemption
// fulfillment: withdrawal is TREASURER, emergency withdrawal ADMIN.
type TreasuryService struct {
	db     *gorm.DB
	ledger *LedgerService
	mu     sync.Mutex
}

func NewTreasuryService(db *gorm.DB, ledger *LedgerService) *TreasuryService {
	return &TreasuryService{db: db, ledger: ledger}
}

// WithdrawToTreasury sweeps reserve units out of vault custody to an
// operational destination account.
func (s *TreasuryService) WithdrawToTreasury(ctx context.Context, amount decimal.Decimal, destination, actor string) error {
	return s.withdraw(ctx, amount, destination, actor, "WITHDRAW_TO_TREASURY")
}

// EmergencyWithdraw is the ADMIN-level incident-response path. Same balance
// rules, distinct audit action so reconciliation can separate the two.
func (s *TreasuryService) EmergencyWithdraw(ctx context.Context, amount decimal.Decimal, destination, actor string) error {
	return s.withdraw(ctx, amount, destination, actor, "EMERGENCY_WITHDRAW")
}

func (s *TreasuryService) withdraw(ctx context.Context, amount decimal.Decimal, destination, actor, action string) error {
	if destination == "" {
		return ErrZeroAddress
	}
	if !amount.IsPositive() {
		return ErrZeroAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.TransferTx(tx, models.VaultWallet, destination, amount, actor, nil); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return ErrInsufficientVaultBalance
			}
			return err
		}
		return auditTx(tx, actor, action, "VAULT", strPtr(destination), map[string]interface{}{
			"amount": amount.String(),
		})
	})
	if err != nil {
		return err
	}

	log.Printf("%s: %s reserve units moved to %s by %s", action, amount, destination, actor)
	return nil
}

// VaultBalance returns the vault custody reserve-unit balance.
func (s *TreasuryService) VaultBalance(ctx context.Context) (decimal.Decimal, error) {
	balance, err := s.ledger.Balance(ctx, models.VaultWallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read vault balance: %w", err)
	}
	return balance, nil
}
