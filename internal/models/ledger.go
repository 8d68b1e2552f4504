package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reserved ledger accounts. Vault custody holds escrowed units for pending
// redemptions; treasury is the operational sink for swept balances.
const (
	VaultWallet    = "VAULT"
	TreasuryWallet = "TREASURY"
)

type LedgerEntryKind string

const (
	LedgerEntryMint     LedgerEntryKind = "MINT"
	LedgerEntryBurn     LedgerEntryKind = "BURN"
	LedgerEntryTransfer LedgerEntryKind = "TRANSFER"
)

// LedgerAccount tracks a wallet's reserve-unit balance (18-decimal semantics)
type LedgerAccount struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Wallet    string          `gorm:"uniqueIndex;size:255;not null" json:"wallet"`
	Balance   decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}

// LedgerEntry is the append-only audit record written with every ledger
// mutation, in the same transaction as the balance change.
type LedgerEntry struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       LedgerEntryKind `gorm:"size:20;not null;index" json:"kind"`
	FromWallet *string         `gorm:"size:255;index" json:"from_wallet,omitempty"`
	ToWallet   *string         `gorm:"size:255;index" json:"to_wallet,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(30,18);not null" json:"amount"`
	Actor      string          `gorm:"size:255;not null" json:"actor"`
	Reference  *string         `gorm:"size:255;index" json:"reference,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
