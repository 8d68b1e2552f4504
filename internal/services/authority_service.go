package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"coopfund/internal/models"

	"gorm.io/gorm"
)

// AuthorityService manages capability role grants. Roles are additive: a
// wallet may hold ADMIN, BACKEND and TREASURER at once. The one structural
// invariant is that at least one ADMIN grant exists at all times, enforced
// inside the revocation transaction.
type AuthorityService struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewAuthorityService(db *gorm.DB) *AuthorityService {
	return &AuthorityService{db: db}
}

// HasRole reports whether the wallet holds the given role.
func (s *AuthorityService) HasRole(ctx context.Context, wallet string, role models.Role) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.RoleGrant{}).
		Where("wallet = ? AND role = ?", wallet, role).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// RequireRole returns Forbidden unless the wallet holds the role.
func (s *AuthorityService) RequireRole(ctx context.Context, wallet string, role models.Role) error {
	ok, err := s.HasRole(ctx, wallet, role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// GrantRole assigns a role to a wallet. Granting an already-held role is an
// error so mistaken double-grants surface instead of silently passing.
func (s *AuthorityService) GrantRole(ctx context.Context, wallet string, role models.Role, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.grantTx(tx, wallet, role, actor)
	})
}

func (s *AuthorityService) grantTx(tx *gorm.DB, wallet string, role models.Role, actor string) error {
	var count int64
	if err := tx.Model(&models.RoleGrant{}).
		Where("wallet = ? AND role = ?", wallet, role).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing grant: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("wallet %s already holds role %s", wallet, role)
	}

	grant := models.RoleGrant{Wallet: wallet, Role: role, GrantedBy: actor}
	if err := tx.Create(&grant).Error; err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}

	return auditTx(tx, actor, "GRANT_ROLE", "ROLE_GRANT", strPtr(wallet), map[string]interface{}{
		"role": string(role),
	})
}

// RevokeRole removes a role from a wallet. Revoking the last ADMIN grant
// fails WouldLeaveWithoutAdmin.
func (s *AuthorityService) RevokeRole(ctx context.Context, wallet string, role models.Role, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.revokeTx(tx, wallet, role, actor)
	})
}

func (s *AuthorityService) revokeTx(tx *gorm.DB, wallet string, role models.Role, actor string) error {
	if role == models.RoleAdmin {
		var admins int64
		if err := tx.Model(&models.RoleGrant{}).
			Where("role = ?", models.RoleAdmin).
			Count(&admins).Error; err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return ErrWouldLeaveWithoutAdmin
		}
	}

	result := tx.Where("wallet = ? AND role = ?", wallet, role).Delete(&models.RoleGrant{})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return auditTx(tx, actor, "REVOKE_ROLE", "ROLE_GRANT", strPtr(wallet), map[string]interface{}{
		"role": string(role),
	})
}

// InitiateAdminTransfer grants ADMIN to the incoming wallet. The outgoing
// admin keeps theirs until CompleteAdminTransfer, so there is never a gap.
func (s *AuthorityService) InitiateAdminTransfer(ctx context.Context, newAdmin, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.grantTx(tx, newAdmin, models.RoleAdmin, actor)
	})
	if err != nil {
		return err
	}
	log.Printf("Admin transfer initiated: %s granted ADMIN by %s", newAdmin, actor)
	return nil
}

// CompleteAdminTransfer revokes the caller's own ADMIN grant. Fails when the
// caller is the only admin, which also means a transfer that was never
// initiated cannot be completed.
func (s *AuthorityService) CompleteAdminTransfer(ctx context.Context, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.revokeTx(tx, caller, models.RoleAdmin, caller)
	})
	if err != nil {
		return err
	}
	log.Printf("Admin transfer completed: %s relinquished ADMIN", caller)
	return nil
}

// RolesFor lists all roles held by a wallet.
func (s *AuthorityService) RolesFor(ctx context.Context, wallet string) ([]models.Role, error) {
	var grants []models.RoleGrant
	if err := s.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("role ASC").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	roles := make([]models.Role, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, g.Role)
	}
	return roles, nil
}
