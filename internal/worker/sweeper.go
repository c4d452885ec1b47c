package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"compliance-service/internal/models"
	"compliance-service/internal/repository"
)

// StaleTransactionSweeper marks transactions left in awaiting confirmation
// as timed out once their poll window has long passed. A process restart
// kills the in-memory confirmation polls; the sweeper keeps the database
// from accumulating transactions that can never resolve.
type StaleTransactionSweeper struct {
	txRepo   *repository.TransactionRepository
	interval time.Duration
	maxAge   time.Duration
	ticker   *time.Ticker
	stopOnce sync.Once
	stop     chan struct{}
}

func NewStaleTransactionSweeper(txRepo *repository.TransactionRepository, interval, maxAge time.Duration) *StaleTransactionSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		// The longest poll is the card rail: 6000 attempts at the poll
		// interval. An hour past that is unambiguously stale.
		maxAge = 6 * time.Hour
	}
	return &StaleTransactionSweeper{
		txRepo:   txRepo,
		interval: interval,
		maxAge:   maxAge,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *StaleTransactionSweeper) Start() {
	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
	slog.Info("Stale transaction sweeper started", "interval", s.interval, "max_age", s.maxAge)
}

func (s *StaleTransactionSweeper) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stop)
	})
}

func (s *StaleTransactionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.maxAge)
	stale, err := s.txRepo.ListStaleAwaitingTransactions(ctx, cutoff)
	if err != nil {
		slog.Error("Stale transaction sweep failed", "error", err)
		return
	}

	for i := range stale {
		tx := &stale[i]
		if !tx.Status.CanTransitionTo(models.TransactionTimedOut) {
			continue
		}
		tx.Status = models.TransactionTimedOut
		now := time.Now()
		tx.CompletedAt = &now
		msg := "payment confirmation abandoned after service restart"
		tx.FailureMessage = &msg

		if err := s.txRepo.UpdateTransaction(ctx, tx); err != nil {
			slog.Error("Failed to time out stale transaction",
				"transaction_id", tx.TransactionID, "error", err)
			continue
		}
		slog.Info("Stale transaction timed out", "transaction_id", tx.TransactionID)
	}
}
