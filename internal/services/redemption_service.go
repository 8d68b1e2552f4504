package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"coopfund/internal/custody"
	"coopfund/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// settlementScale is the decimal scale of the settlement currency. Reserve
// units carry 18-decimal semantics; conversion truncates to the settlement
// smallest unit, the decimal equivalent of integer division by 10^12.
const settlementScale = 6

// dailyWindow is the fixed redemption rate-limit window. It resets on the
// first redeem after expiry rather than sliding; intentional simplicity for
// the expected low redemption volume.
const dailyWindow = 24 * time.Hour

// RedemptionService is the redemption state machine: it escrows reserve
// units into vault custody on redeem and settles each request exactly once
// via fulfill, cancel or forfeit.
//
// The single mutex serializes balance check-and-escrow, the shared daily
// aggregate and all settlement transitions. This is a deliberate bottleneck;
// the status-guarded updates keep concurrent settlement attempts first-wins
// even across processes.
type RedemptionService struct {
	db      *gorm.DB
	ledger  *LedgerService
	members MembershipRegistry
	rail    custody.Rail
	mu      sync.Mutex
}

func NewRedemptionService(db *gorm.DB, ledger *LedgerService, members MembershipRegistry, rail custody.Rail) *RedemptionService {
	return &RedemptionService{
		db:      db,
		ledger:  ledger,
		members: members,
		rail:    rail,
	}
}

// ConvertToSettlement converts a reserve-unit amount to the settlement
// currency amount paid on fulfillment. Exact fixed-point truncation; any
// fraction below the settlement smallest unit is dropped, never rounded up.
func ConvertToSettlement(amount decimal.Decimal) decimal.Decimal {
	return amount.Truncate(settlementScale)
}

// Redeem escrows amount reserve units from the requester into vault custody
// and creates a PENDING redemption request. A failed cap or balance check
// has no side effects.
func (s *RedemptionService) Redeem(ctx context.Context, wallet string, amount decimal.Decimal) (*models.RedemptionRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	request := &models.RedemptionRequest{
		ID:              uuid.New(),
		RequesterWallet: wallet,
		Amount:          amount,
		Status:          models.RedemptionStatusPending,
	}
	ref := request.ID.String()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserve, err := s.loadReserveTx(tx)
		if err != nil {
			return err
		}

		if reserve.MaxRedemptionPerUser.IsPositive() && amount.GreaterThan(reserve.MaxRedemptionPerUser) {
			return ErrExceedsPerUserCap
		}

		now := time.Now()
		windowStart := reserve.WindowStart
		daily := reserve.DailyRedeemed
		if now.Sub(windowStart) >= dailyWindow {
			windowStart = now
			daily = decimal.Zero
		}
		if reserve.MaxDailyRedemptions.IsPositive() && daily.Add(amount).GreaterThan(reserve.MaxDailyRedemptions) {
			return ErrExceedsDailyCap
		}

		if err := s.ledger.TransferTx(tx, wallet, models.VaultWallet, amount, wallet, &ref); err != nil {
			return err
		}

		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("failed to create redemption request: %w", err)
		}

		updates := map[string]interface{}{
			"window_start":   windowStart,
			"daily_redeemed": daily.Add(amount),
		}
		if err := tx.Model(&models.VaultReserve{}).Where("id = ?", reserve.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update daily aggregate: %w", err)
		}

		return auditTx(tx, wallet, "REDEEM", "REDEMPTION_REQUEST", &ref, map[string]interface{}{
			"amount": amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Redemption %s created: %s escrowed %s reserve units", request.ID, wallet, amount)
	return request, nil
}

// GetRequest retrieves a redemption request by ID
func (s *RedemptionService) GetRequest(ctx context.Context, id uuid.UUID) (*models.RedemptionRequest, error) {
	var request models.RedemptionRequest
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// VaultReserve returns the vault accounting row, creating it on first use.
func (s *RedemptionService) VaultReserve(ctx context.Context) (*models.VaultReserve, error) {
	var reserve *models.VaultReserve
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reserve, err = s.loadReserveTx(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reserve, nil
}

// ApplyConfiguredCaps seeds the reserve caps from deployment configuration
// at startup. Zero values leave the stored caps untouched so runtime cap
// changes survive a restart.
func (s *RedemptionService) ApplyConfiguredCaps(ctx context.Context, perUser, daily decimal.Decimal) error {
	if perUser.IsPositive() {
		if err := s.SetMaxRedemptionPerUser(ctx, perUser, "system"); err != nil {
			return err
		}
	}
	if daily.IsPositive() {
		if err := s.SetMaxDailyRedemptions(ctx, daily, "system"); err != nil {
			return err
		}
	}
	return nil
}

// SetMaxRedemptionPerUser sets the per-request cap; zero lifts it. Already
// pending requests are never retroactively invalidated.
func (s *RedemptionService) SetMaxRedemptionPerUser(ctx context.Context, amount decimal.Decimal, actor string) error {
	return s.setCap(ctx, "max_redemption_per_user", "SET_PER_USER_CAP", amount, actor)
}

// SetMaxDailyRedemptions sets the aggregate daily cap; zero lifts it.
func (s *RedemptionService) SetMaxDailyRedemptions(ctx context.Context, amount decimal.Decimal, actor string) error {
	return s.setCap(ctx, "max_daily_redemptions", "SET_DAILY_CAP", amount, actor)
}

func (s *RedemptionService) setCap(ctx context.Context, column, action string, amount decimal.Decimal, actor string) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserve, err := s.loadReserveTx(tx)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.VaultReserve{}).Where("id = ?", reserve.ID).
			Update(column, amount).Error; err != nil {
			return fmt.Errorf("failed to update cap: %w", err)
		}
		return auditTx(tx, actor, action, "VAULT_RESERVE", nil, map[string]interface{}{
			"amount": amount.String(),
		})
	})
}

// ResyncReserve refreshes the cached settlement reserve from the live
// custody balance. The cached figure is allowed to diverge between syncs.
func (s *RedemptionService) ResyncReserve(ctx context.Context, actor string) (decimal.Decimal, error) {
	live, err := s.rail.GetCustodyBalance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query custody balance: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserve, err := s.loadReserveTx(tx)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.VaultReserve{}).Where("id = ?", reserve.ID).
			Updates(map[string]interface{}{
				"cached_reserve": live,
				"last_synced_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to resync reserve: %w", err)
		}
		return auditTx(tx, actor, "RESYNC_RESERVE", "VAULT_RESERVE", nil, map[string]interface{}{
			"cached_reserve": live.String(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	log.Printf("Cached reserve resynced to %s", live)
	return live, nil
}

// loadReserveTx fetches the singleton vault row, creating it on first touch.
func (s *RedemptionService) loadReserveTx(tx *gorm.DB) (*models.VaultReserve, error) {
	reserve := models.VaultReserve{ID: 1, WindowStart: time.Now()}
	if err := tx.Where("id = ?", 1).FirstOrCreate(&reserve).Error; err != nil {
		return nil, fmt.Errorf("failed to load vault reserve: %w", err)
	}
	return &reserve, nil
}
