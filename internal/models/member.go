package models

import (
	"time"
)

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

// Member represents a cooperative member identified by their wallet
type Member struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	WalletAddress   string       `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Nickname        string       `gorm:"uniqueIndex;not null" json:"nickname"`
	Status          MemberStatus `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	SuspendedReason *string      `gorm:"type:text" json:"suspended_reason,omitempty"`
	SuspendedAt     *time.Time   `json:"suspended_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Member model
func (Member) TableName() string {
	return "members"
}
