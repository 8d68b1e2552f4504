package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"coopfund/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MembershipRegistry is the contract consumed by settlement operations to
// block fulfillment and cancellation for suspended accounts.
type MembershipRegistry interface {
	IsActiveMember(ctx context.Context, wallet string) (bool, error)
}

// MemberService manages cooperative membership and the onboarding mint.
type MemberService struct {
	db           *gorm.DB
	ledger       *LedgerService
	initialGrant decimal.Decimal
	mu           sync.Mutex
}

func NewMemberService(db *gorm.DB, ledger *LedgerService, initialGrant decimal.Decimal) *MemberService {
	return &MemberService{
		db:           db,
		ledger:       ledger,
		initialGrant: initialGrant,
	}
}

// RegisterMember creates a member and mints the onboarding reserve grant in
// one transaction. Minting is the only way total supply increases.
func (s *MemberService) RegisterMember(ctx context.Context, wallet, nickname string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member := &models.Member{
		WalletAddress: wallet,
		Nickname:      nickname,
		Status:        models.MemberStatusActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to create member: %w", err)
		}
		if s.initialGrant.IsPositive() {
			if err := s.ledger.MintTx(tx, wallet, s.initialGrant, wallet, nil); err != nil {
				return fmt.Errorf("failed to mint onboarding grant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Registered member %s (%s)", nickname, wallet)
	return member, nil
}

// GetByWallet retrieves a member by wallet address
func (s *MemberService) GetByWallet(ctx context.Context, wallet string) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&member).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Suspend marks a member suspended. Suspended members cannot have
// redemptions fulfilled or cancelled; forfeiture remains available.
func (s *MemberService) Suspend(ctx context.Context, wallet, reason, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Member{}).
			Where("wallet_address = ? AND status = ?", wallet, models.MemberStatusActive).
			Updates(map[string]interface{}{
				"status":           models.MemberStatusSuspended,
				"suspended_reason": reason,
				"suspended_at":     now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return auditTx(tx, actor, "SUSPEND_MEMBER", "MEMBER", strPtr(wallet), map[string]interface{}{
			"reason": reason,
		})
	})
}

// Reinstate reactivates a suspended member
func (s *MemberService) Reinstate(ctx context.Context, wallet, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Member{}).
			Where("wallet_address = ? AND status = ?", wallet, models.MemberStatusSuspended).
			Updates(map[string]interface{}{
				"status":           models.MemberStatusActive,
				"suspended_reason": nil,
				"suspended_at":     nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return auditTx(tx, actor, "REINSTATE_MEMBER", "MEMBER", strPtr(wallet), nil)
	})
}

// IsActiveMember reports whether the wallet belongs to an active,
// non-suspended member.
func (s *MemberService) IsActiveMember(ctx context.Context, wallet string) (bool, error) {
	var member models.Member
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&member).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return member.Status == models.MemberStatusActive, nil
}
