package database

import (
	"fmt"
	"log"

	"coopfund/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	// Ledger models first; everything else references wallets
	ledgerModels := []interface{}{
		&models.LedgerAccount{},
		&models.LedgerEntry{},
	}

	for _, model := range ledgerModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Membership models
	memberModels := []interface{}{
		&models.Member{},
	}

	for _, model := range memberModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Redemption models
	redemptionModels := []interface{}{
		&models.RedemptionRequest{},
		&models.VaultReserve{},
	}

	for _, model := range redemptionModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Governance models
	governanceModels := []interface{}{
		&models.Proposal{},
		&models.ProposalVote{},
		&models.CoopConfig{},
	}

	for _, model := range governanceModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Authority models
	authorityModels := []interface{}{
		&models.RoleGrant{},
		&models.AuditLog{},
	}

	for _, model := range authorityModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
