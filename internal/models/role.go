package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

type Role string

const (
	// RoleAdmin has full control including role management
	RoleAdmin Role = "ADMIN"
	// RoleBackend handles day-to-day fulfillment and cancellation
	RoleBackend Role = "BACKEND"
	// RoleTreasurer handles withdrawals, caps and emergency resolution
	RoleTreasurer Role = "TREASURER"
)

// RoleGrant assigns a capability role to a wallet. Roles are non-exclusive;
// a wallet may hold several.
type RoleGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Wallet    string    `gorm:"size:255;not null;uniqueIndex:idx_wallet_role" json:"wallet"`
	Role      Role      `gorm:"size:20;not null;uniqueIndex:idx_wallet_role" json:"role"`
	GrantedBy string    `gorm:"size:255;not null" json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (RoleGrant) TableName() string {
	return "role_grants"
}

// AuditLog records privileged actions for reconciliation. Written in the
// same transaction as the state mutation it describes.
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActorWallet  string    `gorm:"size:255;not null;index" json:"actor_wallet"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50" json:"resource_type"`
	ResourceID   *string   `gorm:"size:255;index" json:"resource_id,omitempty"`
	Details      JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
