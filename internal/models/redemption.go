package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "PENDING"
	RedemptionStatusFulfilled RedemptionStatus = "FULFILLED"
	RedemptionStatusCancelled RedemptionStatus = "CANCELLED"
	RedemptionStatusForfeited RedemptionStatus = "FORFEITED"
)

// RedemptionRequest tracks a burn-request against the vault. Escrowed units
// are held by the vault ledger account while the request is PENDING.
type RedemptionRequest struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterWallet string           `gorm:"size:255;not null;index" json:"requester_wallet"`
	Amount          decimal.Decimal  `gorm:"type:decimal(30,18);not null" json:"amount"`
	Status          RedemptionStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	// Reason is set on forfeiture, and carries the note on emergency resolution.
	Reason *string `gorm:"type:text" json:"reason,omitempty"`
	// ResolvedViaEmergency marks a CANCELLED request whose value was returned
	// through an out-of-band transfer rather than a vault-mediated refund.
	ResolvedViaEmergency bool             `gorm:"not null;default:false" json:"resolved_via_emergency"`
	PayoutAmount         *decimal.Decimal `gorm:"type:decimal(20,6)" json:"payout_amount,omitempty"`
	PayoutTxRef          *string          `gorm:"size:255" json:"payout_tx_ref,omitempty"`
	SettledBy            *string          `gorm:"size:255" json:"settled_by,omitempty"`
	SettledAt            *time.Time       `json:"settled_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func (RedemptionRequest) TableName() string {
	return "redemption_requests"
}

// VaultReserve is the vault's singleton accounting row. CachedReserve is the
// bookkept settlement-currency figure; it is updated only by explicit resync
// or by fulfillment/withdrawal deltas and may lag the true custody balance.
type VaultReserve struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CachedReserve decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"cached_reserve"`
	// Caps are reserve-unit amounts; zero means unlimited.
	MaxRedemptionPerUser decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0" json:"max_redemption_per_user"`
	MaxDailyRedemptions  decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0" json:"max_daily_redemptions"`
	// Fixed 24h window: reset on the first redeem after expiry, not sliding.
	WindowStart   time.Time       `json:"window_start"`
	DailyRedeemed decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0" json:"daily_redeemed"`
	LastSyncedAt  *time.Time      `json:"last_synced_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (VaultReserve) TableName() string {
	return "vault_reserve"
}

// RedeemRequest is the API payload for creating a redemption
type RedeemRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ForfeitRequest carries the mandatory forfeiture reason
type ForfeitRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// EmergencyResolveRequest carries the note for an out-of-band resolution
type EmergencyResolveRequest struct {
	Note string `json:"note" binding:"required"`
}

// CapRequest sets a redemption cap; zero lifts the cap
type CapRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawRequest is the treasury withdrawal payload
type WithdrawRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Destination string          `json:"destination" binding:"required"`
}
