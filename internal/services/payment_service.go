package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"compliance-service/internal/config"
	"compliance-service/internal/event"
	"compliance-service/internal/models"
	"compliance-service/internal/payments"
	"compliance-service/internal/repository"
)

// featurePriceLookup adapts the feature repository to the gate's price
// lookup contract.
type featurePriceLookup struct {
	repo *repository.FeatureRepository
}

func (l featurePriceLookup) FeaturePrice(ctx context.Context, featureName string) (*models.ReportFeature, error) {
	return l.repo.GetFeatureByName(ctx, featureName)
}

// PaymentService runs one payment gate per transaction and reconciles every
// terminal outcome into the database, the event queue, and the report
// pipeline.
type PaymentService struct {
	cfg           config.PaymentConfig
	txRepo        *repository.TransactionRepository
	featureRepo   *repository.FeatureRepository
	momo          payments.MobileMoneyProvider
	card          payments.CardProvider
	contextStore  payments.ContextStore
	publisher     *event.PaymentPublisher
	reportService *ReportService
	clock         payments.Clock

	mu    sync.Mutex
	gates map[string]*payments.Gate
}

func NewPaymentService(
	cfg config.PaymentConfig,
	txRepo *repository.TransactionRepository,
	featureRepo *repository.FeatureRepository,
	momo payments.MobileMoneyProvider,
	card payments.CardProvider,
	contextStore payments.ContextStore,
	publisher *event.PaymentPublisher,
	reportService *ReportService,
) *PaymentService {
	return &PaymentService{
		cfg:           cfg,
		txRepo:        txRepo,
		featureRepo:   featureRepo,
		momo:          momo,
		card:          card,
		contextStore:  contextStore,
		publisher:     publisher,
		reportService: reportService,
		clock:         payments.SystemClock(),
		gates:         make(map[string]*payments.Gate),
	}
}

func (s *PaymentService) gateConfig() payments.GateConfig {
	return payments.GateConfig{
		PollInterval:           time.Duration(s.cfg.PollIntervalSeconds) * time.Second,
		MobileMoneyMaxAttempts: s.cfg.MobileMoneyMaxAttempts,
		CardMaxAttempts:        s.cfg.CardMaxAttempts,
	}
}

// OpenPayment starts a fresh payment flow and returns the created
// transaction.
func (s *PaymentService) OpenPayment(ctx context.Context, req models.OpenPaymentRequest) (*models.PaymentTransaction, error) {
	gate := payments.NewGate(
		s.gateConfig(),
		featurePriceLookup{repo: s.featureRepo},
		s.momo,
		s.card,
		s.clock,
		s.contextStore,
	)

	opts := payments.OpenOptions{FeatureName: req.FeatureName}
	if req.AgentID != nil {
		opts.AgentID = *req.AgentID
	}
	if req.Phone != nil {
		opts.Phone = *req.Phone
	}
	if req.Email != nil {
		opts.Email = *req.Email
	}

	tx, err := gate.Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	gate.OnTerminal(s.terminalHandler(tx.TransactionID))

	s.mu.Lock()
	s.gates[tx.TransactionID] = gate
	s.mu.Unlock()

	if err := s.txRepo.CreateTransaction(ctx, tx); err != nil {
		// The gate can still run; persistence catches up on the next update.
		slog.Error("Failed to persist new payment transaction",
			"transaction_id", tx.TransactionID, "error", err)
	}

	return tx, nil
}

// SelectMethod records the payment rail for a transaction.
func (s *PaymentService) SelectMethod(ctx context.Context, transactionID string, method models.PaymentMethod) (*models.PaymentTransaction, error) {
	gate, err := s.gateFor(transactionID)
	if err != nil {
		return nil, err
	}
	if err := gate.SelectMethod(method); err != nil {
		return nil, err
	}

	tx := gate.Transaction()
	s.persist(ctx, tx)
	return tx, nil
}

// SubmitPayment initiates the charge and starts confirmation polling.
func (s *PaymentService) SubmitPayment(ctx context.Context, transactionID string, req models.SubmitPaymentRequest) (*models.PaymentTransaction, error) {
	gate, err := s.gateFor(transactionID)
	if err != nil {
		return nil, err
	}

	input := payments.SubmitInput{}
	if req.Phone != nil {
		input.Phone = *req.Phone
	}
	if req.Email != nil {
		input.Email = *req.Email
	}
	if req.Currency != nil {
		input.Currency = *req.Currency
	}

	if err := gate.Submit(ctx, input); err != nil {
		return nil, err
	}

	tx := gate.Transaction()
	s.persist(ctx, tx)
	return tx, nil
}

// CancelPayment abandons a transaction that is not awaiting confirmation.
// While the confirmation poll is running the cancel is acknowledged but
// changes nothing.
func (s *PaymentService) CancelPayment(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	gate, err := s.gateFor(transactionID)
	if err != nil {
		return nil, err
	}

	before := gate.Transaction()
	if err := gate.Cancel(); err != nil {
		return nil, err
	}

	if after := gate.Transaction(); after == nil {
		// Abandoned for real; release the gate and the saved context.
		s.mu.Lock()
		delete(s.gates, transactionID)
		s.mu.Unlock()
		if s.contextStore != nil {
			if err := s.contextStore.Delete(ctx, transactionID); err != nil {
				slog.Warn("Failed to delete payment context", "transaction_id", transactionID, "error", err)
			}
		}
	}
	return before, nil
}

// GetTransaction returns the live gate snapshot when the flow is still in
// memory, falling back to the persisted record.
func (s *PaymentService) GetTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	s.mu.Lock()
	gate, ok := s.gates[transactionID]
	s.mu.Unlock()

	if ok {
		if tx := gate.Transaction(); tx != nil {
			return tx, nil
		}
	}
	return s.txRepo.GetTransactionByID(ctx, transactionID)
}

// Shutdown stops all confirmation polls without firing terminal events.
func (s *PaymentService) Shutdown() {
	s.mu.Lock()
	gates := make([]*payments.Gate, 0, len(s.gates))
	for _, g := range s.gates {
		gates = append(gates, g)
	}
	s.mu.Unlock()

	for _, g := range gates {
		g.Close()
	}
}

func (s *PaymentService) gateFor(transactionID string) (*payments.Gate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate, ok := s.gates[transactionID]
	if !ok {
		return nil, fmt.Errorf("payment transaction not found: %s", transactionID)
	}
	return gate, nil
}

func (s *PaymentService) persist(ctx context.Context, tx *models.PaymentTransaction) {
	if tx == nil {
		return
	}
	if err := s.txRepo.UpdateTransaction(ctx, tx); err != nil {
		slog.Error("Failed to persist payment transaction",
			"transaction_id", tx.TransactionID, "error", err)
	}
}

// terminalHandler builds the exactly-once terminal callback for a
// transaction: persist the outcome, publish the event, kick off the report
// on success, and release the gate.
func (s *PaymentService) terminalHandler(transactionID string) payments.TerminalFunc {
	return func(details payments.TerminalDetails) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.mu.Lock()
		gate := s.gates[transactionID]
		delete(s.gates, transactionID)
		s.mu.Unlock()

		var tx *models.PaymentTransaction
		if gate != nil {
			tx = gate.Transaction()
		}
		if tx != nil {
			s.persist(ctx, tx)
		}

		if s.contextStore != nil {
			if err := s.contextStore.Delete(ctx, transactionID); err != nil {
				slog.Warn("Failed to delete payment context", "transaction_id", transactionID, "error", err)
			}
		}

		if s.publisher != nil {
			evt := event.PaymentEventModel{
				TransactionID:  details.TransactionID,
				Status:         string(details.Status),
				ProviderStatus: details.ProviderStatus,
				Attempts:       details.Attempts,
				OccurredAt:     time.Now(),
			}
			if tx != nil {
				evt.FeatureName = tx.FeatureName
				if tx.AgentID != nil {
					evt.AgentID = *tx.AgentID
				}
				if tx.Currency != nil {
					evt.Currency = *tx.Currency
				}
			}
			if details.Verification != nil {
				evt.Amount = details.Verification.Amount
				if evt.Currency == "" {
					evt.Currency = details.Verification.Currency
				}
			}
			if err := s.publisher.PublishPaymentEvent(ctx, evt); err != nil {
				slog.Error("Failed to publish payment event",
					"transaction_id", transactionID, "error", err)
			}
		}

		if details.Status == models.TransactionVerified && s.reportService != nil && tx != nil {
			if _, err := s.reportService.CreatePendingReport(ctx, tx); err != nil {
				slog.Error("Failed to open report for verified payment",
					"transaction_id", transactionID, "error", err)
			}
		}
	}
}
