package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"coopfund/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fulfill burns the escrowed units and pays the converted settlement amount
// to the requester. Two-phase: every check passes before the rail payout is
// attempted, and the database transition happens only after the payout
// succeeds — a rail failure leaves the request PENDING and retryable.
func (s *RedemptionService) Fulfill(ctx context.Context, requestID uuid.UUID, operator string) (*models.RedemptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RedemptionStatusPending {
		return nil, ErrNotPending
	}

	active, err := s.members.IsActiveMember(ctx, request.RequesterWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return nil, ErrMembershipInactive
	}

	payout := ConvertToSettlement(request.Amount)
	if !payout.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Live custody first, cached reserve second; the two may diverge between
	// resyncs and fulfillment fails on whichever is tighter.
	liveBalance, err := s.rail.GetCustodyBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query custody balance: %w", err)
	}
	if liveBalance.LessThan(payout) {
		return nil, ErrInsufficientCustody
	}

	reserve, err := s.VaultReserve(ctx)
	if err != nil {
		return nil, err
	}
	if reserve.CachedReserve.LessThan(payout) {
		return nil, ErrInsufficientReserve
	}

	txRef, err := s.rail.PayOut(ctx, request.RequesterWallet, payout)
	if err != nil {
		return nil, fmt.Errorf("payout rail failed, request remains pending: %w", err)
	}

	now := time.Now()
	ref := request.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RedemptionRequest{}).
			Where("id = ? AND status = ?", requestID, models.RedemptionStatusPending).
			Updates(map[string]interface{}{
				"status":        models.RedemptionStatusFulfilled,
				"payout_amount": payout,
				"payout_tx_ref": txRef,
				"settled_by":    operator,
				"settled_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotPending
		}

		if err := s.ledger.BurnTx(tx, models.VaultWallet, request.Amount, operator, &ref); err != nil {
			return err
		}

		if err := tx.Model(&models.VaultReserve{}).Where("id = ?", 1).
			Update("cached_reserve", gorm.Expr("cached_reserve - ?", payout)).Error; err != nil {
			return fmt.Errorf("failed to decrement cached reserve: %w", err)
		}

		return auditTx(tx, operator, "FULFILL", "REDEMPTION_REQUEST", &ref, map[string]interface{}{
			"amount":        request.Amount.String(),
			"payout_amount": payout.String(),
			"payout_tx_ref": txRef,
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.RedemptionStatusFulfilled
	request.PayoutAmount = &payout
	request.PayoutTxRef = &txRef
	request.SettledBy = &operator
	request.SettledAt = &now

	log.Printf("Redemption %s fulfilled: burned %s, paid %s (%s)", requestID, request.Amount, payout, txRef)
	return request, nil
}

// Cancel returns the escrowed units to the requester. Blocked for suspended
// members; those must go through forfeit or the emergency path instead.
func (s *RedemptionService) Cancel(ctx context.Context, requestID uuid.UUID, operator string) (*models.RedemptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RedemptionStatusPending {
		return nil, ErrNotPending
	}

	active, err := s.members.IsActiveMember(ctx, request.RequesterWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return nil, ErrMembershipInactive
	}

	now := time.Now()
	ref := request.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RedemptionRequest{}).
			Where("id = ? AND status = ?", requestID, models.RedemptionStatusPending).
			Updates(map[string]interface{}{
				"status":     models.RedemptionStatusCancelled,
				"settled_by": operator,
				"settled_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotPending
		}

		if err := s.ledger.TransferTx(tx, models.VaultWallet, request.RequesterWallet, request.Amount, operator, &ref); err != nil {
			return err
		}

		return auditTx(tx, operator, "CANCEL", "REDEMPTION_REQUEST", &ref, map[string]interface{}{
			"amount": request.Amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.RedemptionStatusCancelled
	request.SettledBy = &operator
	request.SettledAt = &now

	log.Printf("Redemption %s cancelled: %s reserve units returned to %s", requestID, request.Amount, request.RequesterWallet)
	return request, nil
}

// Forfeit burns the escrowed units with no payout. Works for any membership
// state, including suspended — the designed escape hatch for abuse cases.
// The reason is mandatory and stored.
func (s *RedemptionService) Forfeit(ctx context.Context, requestID uuid.UUID, reason, operator string) (*models.RedemptionRequest, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RedemptionStatusPending {
		return nil, ErrNotPending
	}

	now := time.Now()
	ref := request.ID.String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RedemptionRequest{}).
			Where("id = ? AND status = ?", requestID, models.RedemptionStatusPending).
			Updates(map[string]interface{}{
				"status":     models.RedemptionStatusForfeited,
				"reason":     reason,
				"settled_by": operator,
				"settled_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotPending
		}

		if err := s.ledger.BurnTx(tx, models.VaultWallet, request.Amount, operator, &ref); err != nil {
			return err
		}

		return auditTx(tx, operator, "FORFEIT", "REDEMPTION_REQUEST", &ref, map[string]interface{}{
			"amount": request.Amount.String(),
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.RedemptionStatusForfeited
	request.Reason = &reason
	request.SettledBy = &operator
	request.SettledAt = &now

	log.Printf("Redemption %s forfeited: burned %s, reason: %s", requestID, request.Amount, reason)
	return request, nil
}

// MarkEmergencyResolved records that a request's value was already returned
// through an out-of-band transfer. Allowed from PENDING or FORFEITED; a
// FULFILLED (or already CANCELLED) request fails AlreadySettled. Ledger
// balances are untouched — the out-of-band transfer already moved the value.
func (s *RedemptionService) MarkEmergencyResolved(ctx context.Context, requestID uuid.UUID, note, operator string) (*models.RedemptionRequest, error) {
	if note == "" {
		return nil, ErrReasonRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RedemptionStatusPending && request.Status != models.RedemptionStatusForfeited {
		return nil, ErrAlreadySettled
	}

	now := time.Now()
	ref := request.ID.String()
	previous := request.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RedemptionRequest{}).
			Where("id = ? AND status IN ?", requestID,
				[]models.RedemptionStatus{models.RedemptionStatusPending, models.RedemptionStatusForfeited}).
			Updates(map[string]interface{}{
				"status":                 models.RedemptionStatusCancelled,
				"resolved_via_emergency": true,
				"reason":                 note,
				"settled_by":             operator,
				"settled_at":             now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadySettled
		}

		return auditTx(tx, operator, "EMERGENCY_RESOLVE", "REDEMPTION_REQUEST", &ref, map[string]interface{}{
			"previous_status": string(previous),
			"note":            note,
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.RedemptionStatusCancelled
	request.ResolvedViaEmergency = true
	request.Reason = &note
	request.SettledBy = &operator
	request.SettledAt = &now

	log.Printf("Redemption %s emergency-resolved by %s (was %s)", requestID, operator, previous)
	return request, nil
}
