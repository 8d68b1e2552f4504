package services

import (
	"coopfund/internal/models"

	"gorm.io/gorm"
)

// auditTx appends an audit record inside the caller's transaction so the
// trail commits or rolls back together with the mutation it describes.
func auditTx(tx *gorm.DB, actor, action, resourceType string, resourceID *string, details map[string]interface{}) error {
	entry := models.AuditLog{
		ActorWallet:  actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      models.JSONB(details),
	}
	return tx.Create(&entry).Error
}

func strPtr(s string) *string {
	return &s
}
