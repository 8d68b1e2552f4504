package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coopfund/internal/models"
)

// setupPerfDB uses the pure-Go sqlite driver so the benchmarks run without
// cgo, same schema as the unit fixtures.
func setupPerfDB(b *testing.B) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:perf%d?mode=memory&cache=shared", b.N)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		b.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.LedgerAccount{},
		&models.LedgerEntry{},
		&models.Member{},
		&models.RedemptionRequest{},
		&models.VaultReserve{},
		&models.AuditLog{},
	)
	if err != nil {
		b.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func BenchmarkRedeem(b *testing.B) {
	db := setupPerfDB(b)
	ledger := NewLedgerService(db)
	members := NewMemberService(db, ledger, decimal.Zero)
	rail := &fakeRail{balance: decimal.NewFromInt(1_000_000)}
	svc := NewRedemptionService(db, ledger, members, rail)
	ctx := context.Background()

	wallet := "bench-wallet"
	if _, err := members.RegisterMember(ctx, wallet, "bench"); err != nil {
		b.Fatalf("RegisterMember failed: %v", err)
	}
	if err := ledger.Mint(ctx, wallet, decimal.NewFromInt(int64(b.N)+1), "system"); err != nil {
		b.Fatalf("Mint failed: %v", err)
	}

	amount := decimal.NewFromInt(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Redeem(ctx, wallet, amount); err != nil {
			b.Fatalf("Redeem failed at iteration %d: %v", i, err)
		}
	}
}

func BenchmarkConcurrentSettlement(b *testing.B) {
	db := setupPerfDB(b)
	ledger := NewLedgerService(db)
	members := NewMemberService(db, ledger, decimal.Zero)
	rail := &fakeRail{balance: decimal.NewFromInt(1_000_000)}
	svc := NewRedemptionService(db, ledger, members, rail)
	ctx := context.Background()

	wallet := "bench-wallet"
	if _, err := members.RegisterMember(ctx, wallet, "bench"); err != nil {
		b.Fatalf("RegisterMember failed: %v", err)
	}
	if err := ledger.Mint(ctx, wallet, decimal.NewFromInt(int64(b.N)+1), "system"); err != nil {
		b.Fatalf("Mint failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		request, err := svc.Redeem(ctx, wallet, decimal.NewFromInt(1))
		if err != nil {
			b.Fatalf("Redeem failed: %v", err)
		}

		// Race cancel against cancel; exactly one must win
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, errs[j] = svc.Cancel(ctx, request.ID, fmt.Sprintf("op%d", j))
			}(j)
		}
		wg.Wait()

		if (errs[0] == nil) == (errs[1] == nil) {
			b.Fatalf("expected exactly one winner, got %v / %v", errs[0], errs[1])
		}
	}
}
