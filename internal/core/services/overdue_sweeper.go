package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"librahub/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// OverdueSweeper periodically reclassifies Approved loans whose due date has
// passed as Overdue. The transition never touches copy counters (the copy
// was reserved at approval time) and the underlying update is idempotent, so
// the sweeper needs no coordination with user-triggered transitions.
type OverdueSweeper struct {
	loanRepo repositories.LoanRepository
	interval time.Duration
	clock    Clock
	cron     *cron.Cron
}

// NewOverdueSweeper creates a sweeper that runs every interval.
func NewOverdueSweeper(loanRepo repositories.LoanRepository, interval time.Duration) *OverdueSweeper {
	return &OverdueSweeper{
		loanRepo: loanRepo,
		interval: interval,
		clock:    realClock{},
		cron:     cron.New(),
	}
}

// Start schedules the background sweeps. An initial sweep runs immediately so
// a restarted server catches up before the first tick.
func (w *OverdueSweeper) Start() {
	w.sweep()

	if _, err := w.cron.AddFunc(fmt.Sprintf("@every %s", w.interval), w.sweep); err != nil {
		log.Printf("⚠️ Failed to schedule overdue sweeper: %v", err)
		return
	}
	w.cron.Start()

	log.Printf("🕐 Overdue sweeper started (interval: %s)", w.interval)
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (w *OverdueSweeper) Stop() {
	<-w.cron.Stop().Done()
	log.Println("🕐 Overdue sweeper stopped")
}

// Sweep runs one pass and reports how many loans were reclassified.
func (w *OverdueSweeper) Sweep(ctx context.Context) (int64, error) {
	swept, err := w.loanRepo.MarkOverdueBefore(ctx, w.clock.Now())
	if err != nil {
		return 0, storageFailure(err)
	}
	return swept, nil
}

func (w *OverdueSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := w.Sweep(ctx)
	if err != nil {
		log.Printf("⚠️ Overdue sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("🕐 Overdue sweep: %d loan(s) marked overdue", swept)
	}
}
