package jobs

import (
	"context"
	"log"
	"time"

	"coopfund/internal/services"
)

// ReserveResync periodically refreshes the cached settlement reserve from
// the live custody balance. Rail outages are logged and retried on the next
// tick; the cache simply stays stale in between.
type ReserveResync struct {
	redemptions *services.RedemptionService
	interval    time.Duration
	stopChan    chan struct{}
}

// NewReserveResync creates a new reserve resync job
func NewReserveResync(redemptions *services.RedemptionService, interval time.Duration) *ReserveResync {
	return &ReserveResync{
		redemptions: redemptions,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the resync loop
func (rr *ReserveResync) Start() {
	log.Printf("[ReserveResync] Starting reserve resync job (interval: %v)", rr.interval)

	ticker := time.NewTicker(rr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rr.resync()
		case <-rr.stopChan:
			log.Println("[ReserveResync] Stopping reserve resync job")
			return
		}
	}
}

// Stop stops the resync loop
func (rr *ReserveResync) Stop() {
	close(rr.stopChan)
}

func (rr *ReserveResync) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	live, err := rr.redemptions.ResyncReserve(ctx, "system")
	if err != nil {
		log.Printf("[ReserveResync] Resync failed: %v", err)
		return
	}

	log.Printf("[ReserveResync] Cached reserve refreshed: %s", live)
}
