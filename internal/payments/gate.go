package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"compliance-service/internal/models"
)

// ============================================================================
// COLLABORATOR CONTRACTS
// ============================================================================

// PriceLookup resolves the price of a named report feature.
type PriceLookup interface {
	FeaturePrice(ctx context.Context, featureName string) (*models.ReportFeature, error)
}

// MobileMoneyInitiation is the initiation request for the mobile money rail.
type MobileMoneyInitiation struct {
	TransactionID string
	FeatureName   string
	Phone         string
}

// MobileMoneyProvider starts mobile money charges and reports their status.
// Status returns the provider's free-text state for the transaction id.
type MobileMoneyProvider interface {
	Initiate(ctx context.Context, init MobileMoneyInitiation) (string, error)
	Status(ctx context.Context, transactionID string) (string, error)
}

// CardInitiation is the initiation request for the card/DPO rail.
type CardInitiation struct {
	TransactionID string
	FeatureName   string
	Phone         string
	Email         string
	Currency      string
}

// CardInitiationResult carries the provider token used for verification and
// the hosted payment page the user completes the charge on.
type CardInitiationResult struct {
	PaymentURL string
	TransToken string
}

// CardVerification is the provider's verification result for a token.
type CardVerification struct {
	Status     string
	Amount     float64
	Currency   string
	CompanyRef string
}

// CardProvider starts card/DPO charges and verifies them by token.
type CardProvider interface {
	Initiate(ctx context.Context, init CardInitiation) (*CardInitiationResult, error)
	Verify(ctx context.Context, transToken string) (*CardVerification, error)
}

// TerminalDetails is handed to the terminal callback exactly once per
// transaction, when it reaches verified, failed, or timed out.
type TerminalDetails struct {
	TransactionID  string
	Status         models.TransactionStatus
	ProviderStatus string
	Verification   *CardVerification
	Attempts       int
}

// TerminalFunc receives the single terminal notification for a transaction.
type TerminalFunc func(details TerminalDetails)

// ============================================================================
// GATE
// ============================================================================

// GateConfig tunes the confirmation poll.
type GateConfig struct {
	PollInterval           time.Duration
	MobileMoneyMaxAttempts int
	CardMaxAttempts        int
}

func (c GateConfig) withDefaults() GateConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.MobileMoneyMaxAttempts <= 0 {
		c.MobileMoneyMaxAttempts = 40
	}
	if c.CardMaxAttempts <= 0 {
		c.CardMaxAttempts = 6000
	}
	return c
}

// Gate drives a single payment attempt from initiation through confirmation.
// It holds at most one active transaction; opening a new one abandons any
// prior transaction that never reached confirmation.
type Gate struct {
	cfg    GateConfig
	prices PriceLookup
	momo   MobileMoneyProvider
	card   CardProvider
	clock  Clock
	store  ContextStore

	mu            sync.Mutex
	tx            *models.PaymentTransaction
	price         *models.ReportFeature
	onTerminal    TerminalFunc
	terminalFired bool
	pollCancel    context.CancelFunc
	done          chan struct{}
}

// NewGate creates a payment gate. store may be nil when context persistence
// is not wanted (e.g. in tests).
func NewGate(cfg GateConfig, prices PriceLookup, momo MobileMoneyProvider, card CardProvider, clock Clock, store ContextStore) *Gate {
	if clock == nil {
		clock = SystemClock()
	}
	return &Gate{
		cfg:    cfg.withDefaults(),
		prices: prices,
		momo:   momo,
		card:   card,
		clock:  clock,
		store:  store,
	}
}

// OnTerminal registers the callback fired once per transaction on terminal
// status. It must be set before Submit.
func (g *Gate) OnTerminal(fn TerminalFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onTerminal = fn
}

// OpenOptions carries the caller-supplied details for a new transaction.
type OpenOptions struct {
	FeatureName string
	AgentID     string
	Phone       string
	Email       string
}

// Open resets the gate to a fresh created transaction and looks up the
// feature price. A failed price lookup is not fatal; the transaction can
// still proceed with an unknown price. While a transaction is awaiting
// confirmation the call is ignored and the in-flight transaction continues.
func (g *Gate) Open(ctx context.Context, opts OpenOptions) (*models.PaymentTransaction, error) {
	g.mu.Lock()

	if g.tx != nil && g.tx.Status == models.TransactionAwaitingConfirmation {
		snapshot := *g.tx
		g.mu.Unlock()
		slog.Info("Payment gate open ignored, confirmation in flight", "transaction_id", snapshot.TransactionID)
		return &snapshot, nil
	}

	if opts.FeatureName == "" {
		g.mu.Unlock()
		return nil, &ValidationError{Field: "feature_name", Message: "feature name is required"}
	}

	agent := opts.AgentID
	if agent == "" {
		agent = "anon"
	}
	transactionID := fmt.Sprintf("%s-%d", agent, g.clock.Now().UnixMilli())

	tx := &models.PaymentTransaction{
		TransactionID: transactionID,
		FeatureName:   opts.FeatureName,
		Status:        models.TransactionCreated,
		CreatedAt:     g.clock.Now(),
	}
	if opts.AgentID != "" {
		tx.AgentID = &opts.AgentID
	}
	if opts.Phone != "" {
		tx.Phone = &opts.Phone
	}
	if opts.Email != "" {
		tx.Email = &opts.Email
	}

	g.tx = tx
	g.price = nil
	g.terminalFired = false
	g.done = nil
	g.mu.Unlock()

	price, err := g.prices.FeaturePrice(ctx, opts.FeatureName)
	if err != nil {
		slog.Warn("Feature price lookup failed, payment proceeds with unknown price",
			"feature_name", opts.FeatureName, "error", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tx != tx {
		// Gate was reopened while the lookup was running.
		return g.snapshotLocked(), nil
	}
	g.price = price

	g.saveContextLocked(ctx)

	snapshot := *tx
	return &snapshot, nil
}

// SelectMethod records which payment rail the user chose. No network effect.
func (g *Gate) SelectMethod(method models.PaymentMethod) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tx == nil {
		return ErrNoOpenTransaction
	}
	if g.tx.Status == models.TransactionAwaitingConfirmation {
		return ErrConfirmationInFlight
	}
	if !models.IsValidPaymentMethod(method) {
		return &ValidationError{Field: "method", Message: "unknown payment method"}
	}

	g.tx.Method = method
	return nil
}

// SubmitInput carries the method-specific fields supplied at submission.
type SubmitInput struct {
	Phone    string
	Email    string
	Currency string
}

// Submit validates the method-specific required fields, sends the initiation
// request, and on success moves the transaction to awaiting confirmation and
// starts the confirmation poll. Validation failures happen before any network
// call; initiation failures leave the transaction created and retryable.
func (g *Gate) Submit(ctx context.Context, input SubmitInput) error {
	g.mu.Lock()

	if g.tx == nil {
		g.mu.Unlock()
		return ErrNoOpenTransaction
	}
	if g.tx.Status == models.TransactionAwaitingConfirmation {
		g.mu.Unlock()
		return ErrConfirmationInFlight
	}
	if g.tx.Status.IsTerminal() {
		g.mu.Unlock()
		return ErrTransactionCompleted
	}

	tx := g.tx
	if input.Phone != "" {
		tx.Phone = &input.Phone
	}
	if input.Email != "" {
		tx.Email = &input.Email
	}
	if input.Currency != "" {
		tx.Currency = &input.Currency
	}

	method := tx.Method
	switch method {
	case models.MethodMobileMoney:
		if tx.Phone == nil || *tx.Phone == "" {
			g.mu.Unlock()
			return &ValidationError{Field: "phone", Message: "phone is required for mobile money"}
		}
	case models.MethodCardOrDPO:
		if tx.Currency == nil || *tx.Currency == "" {
			g.mu.Unlock()
			return &ValidationError{Field: "currency", Message: "currency is required for card payments"}
		}
	default:
		g.mu.Unlock()
		return &ValidationError{Field: "method", Message: "payment method must be selected before submit"}
	}

	transactionID := tx.TransactionID
	featureName := tx.FeatureName
	phone := derefOrEmpty(tx.Phone)
	email := derefOrEmpty(tx.Email)
	currency := derefOrEmpty(tx.Currency)
	g.mu.Unlock()

	var transToken string
	var paymentURL string

	switch method {
	case models.MethodMobileMoney:
		ack, err := g.momo.Initiate(ctx, MobileMoneyInitiation{
			TransactionID: transactionID,
			FeatureName:   featureName,
			Phone:         phone,
		})
		if err != nil {
			return &InitiationError{Err: err}
		}
		slog.Info("Mobile money payment initiated", "transaction_id", transactionID, "ack", ack)

	case models.MethodCardOrDPO:
		result, err := g.card.Initiate(ctx, CardInitiation{
			TransactionID: transactionID,
			FeatureName:   featureName,
			Phone:         phone,
			Email:         email,
			Currency:      currency,
		})
		if err != nil {
			return &InitiationError{Err: err}
		}
		if result == nil || result.TransToken == "" {
			return &InitiationError{Err: fmt.Errorf("provider returned no verification token")}
		}
		transToken = result.TransToken
		paymentURL = result.PaymentURL
		slog.Info("Card payment initiated", "transaction_id", transactionID)
	}

	g.mu.Lock()
	if g.tx != tx || tx.Status != models.TransactionCreated {
		g.mu.Unlock()
		return ErrConfirmationInFlight
	}

	if !tx.Status.CanTransitionTo(models.TransactionAwaitingConfirmation) {
		g.mu.Unlock()
		return ErrTransactionCompleted
	}
	tx.Status = models.TransactionAwaitingConfirmation
	now := g.clock.Now()
	tx.SubmittedAt = &now
	if transToken != "" {
		tx.ExternalToken = &transToken
	}
	if paymentURL != "" {
		tx.PaymentURL = &paymentURL
	}

	g.saveContextLocked(ctx)

	pollCtx, cancel := context.WithCancel(context.Background())
	g.pollCancel = cancel
	done := make(chan struct{})
	g.done = done
	g.mu.Unlock()

	switch method {
	case models.MethodMobileMoney:
		go g.pollMobileMoney(pollCtx, tx, transactionID, done)
	case models.MethodCardOrDPO:
		go g.pollCard(pollCtx, tx, transToken, done)
	}

	return nil
}

// Cancel abandons a transaction that was never submitted or already finished.
// While confirmation is in flight it is a no-op: the charge may still succeed
// server-side, so the poll must resolve before the gate lets go.
func (g *Gate) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tx == nil {
		return nil
	}
	if g.tx.Status == models.TransactionAwaitingConfirmation {
		slog.Info("Payment gate cancel ignored, confirmation in flight", "transaction_id", g.tx.TransactionID)
		return nil
	}

	g.tx = nil
	g.price = nil
	return nil
}

// Close stops scheduling further poll ticks. It does not cancel any
// server-side charge and fires no terminal event.
func (g *Gate) Close() {
	g.mu.Lock()
	cancel := g.pollCancel
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Transaction returns a snapshot of the active transaction, nil when idle.
func (g *Gate) Transaction() *models.PaymentTransaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Price returns the feature price resolved during Open, nil when the lookup
// failed.
func (g *Gate) Price() *models.ReportFeature {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.price
}

// Done returns a channel closed when the confirmation poll for the current
// transaction finishes. It is nil before Submit.
func (g *Gate) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// ============================================================================
// CONFIRMATION POLL
// ============================================================================

type pollVerdict int

const (
	verdictPending pollVerdict = iota
	verdictVerified
	verdictFailed
)

// classifyMobileMoneyStatus pattern-matches the provider's free-text status.
func classifyMobileMoneyStatus(status string) pollVerdict {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "success"), strings.Contains(s, "confirmed"):
		return verdictVerified
	case strings.Contains(s, "failed"), strings.Contains(s, "rejected"):
		return verdictFailed
	default:
		return verdictPending
	}
}

// classifyCardStatus maps the provider's normalized status field.
func classifyCardStatus(status string) pollVerdict {
	switch strings.ToLower(status) {
	case "verified":
		return verdictVerified
	case "failed":
		return verdictFailed
	default:
		return verdictPending
	}
}

// pollMobileMoney checks the transaction status every poll interval. Ticks
// are strictly sequential; a transport error counts the attempt and the loop
// keeps going until a terminal status or the attempt ceiling.
func (g *Gate) pollMobileMoney(ctx context.Context, tx *models.PaymentTransaction, transactionID string, done chan struct{}) {
	defer close(done)

	for attempt := 1; attempt <= g.cfg.MobileMoneyMaxAttempts; attempt++ {
		if err := g.clock.Sleep(ctx, g.cfg.PollInterval); err != nil {
			return
		}

		status, err := g.momo.Status(ctx, transactionID)
		g.recordAttempt(tx, attempt)
		if err != nil {
			slog.Warn("Mobile money status poll failed", "transaction_id", transactionID, "attempt", attempt, "error", err)
			continue
		}

		switch classifyMobileMoneyStatus(status) {
		case verdictVerified:
			g.finish(tx, models.TransactionVerified, status, nil, attempt)
			return
		case verdictFailed:
			g.finish(tx, models.TransactionFailed, status, nil, attempt)
			return
		}
	}

	g.finish(tx, models.TransactionTimedOut, "", nil, g.cfg.MobileMoneyMaxAttempts)
}

// pollCard verifies the provider token every poll interval with the same
// sequential-tick and transient-error rules as the mobile money poll.
func (g *Gate) pollCard(ctx context.Context, tx *models.PaymentTransaction, transToken string, done chan struct{}) {
	defer close(done)

	for attempt := 1; attempt <= g.cfg.CardMaxAttempts; attempt++ {
		if err := g.clock.Sleep(ctx, g.cfg.PollInterval); err != nil {
			return
		}

		verification, err := g.card.Verify(ctx, transToken)
		g.recordAttempt(tx, attempt)
		if err != nil || verification == nil {
			slog.Warn("Card verification poll failed", "transaction_id", tx.TransactionID, "attempt", attempt, "error", err)
			continue
		}

		switch classifyCardStatus(verification.Status) {
		case verdictVerified:
			g.finish(tx, models.TransactionVerified, verification.Status, verification, attempt)
			return
		case verdictFailed:
			g.finish(tx, models.TransactionFailed, verification.Status, verification, attempt)
			return
		}
	}

	g.finish(tx, models.TransactionTimedOut, "", nil, g.cfg.CardMaxAttempts)
}

func (g *Gate) recordAttempt(tx *models.PaymentTransaction, attempt int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tx == tx {
		tx.PollAttempts = attempt
	}
}

// finish moves the transaction to a terminal status and fires the terminal
// callback exactly once. A transaction already terminal is left untouched.
func (g *Gate) finish(tx *models.PaymentTransaction, status models.TransactionStatus, providerStatus string, verification *CardVerification, attempts int) {
	g.mu.Lock()

	if g.terminalFired || g.tx != tx || !tx.Status.CanTransitionTo(status) {
		g.mu.Unlock()
		return
	}

	tx.Status = status
	now := g.clock.Now()
	tx.CompletedAt = &now
	tx.PollAttempts = attempts
	switch status {
	case models.TransactionFailed:
		msg := providerStatus
		if msg == "" {
			msg = "payment declined"
		}
		tx.FailureMessage = &msg
	case models.TransactionTimedOut:
		msg := "payment confirmation timed out; contact support if you were charged"
		tx.FailureMessage = &msg
	}

	g.terminalFired = true
	callback := g.onTerminal
	details := TerminalDetails{
		TransactionID:  tx.TransactionID,
		Status:         status,
		ProviderStatus: providerStatus,
		Verification:   verification,
		Attempts:       attempts,
	}
	g.mu.Unlock()

	slog.Info("Payment transaction reached terminal status",
		"transaction_id", details.TransactionID,
		"status", string(status),
		"attempts", attempts)

	if callback != nil {
		callback(details)
	}
}

func (g *Gate) snapshotLocked() *models.PaymentTransaction {
	if g.tx == nil {
		return nil
	}
	snapshot := *g.tx
	return &snapshot
}

// saveContextLocked persists the payment context; failures only log.
func (g *Gate) saveContextLocked(ctx context.Context) {
	if g.store == nil || g.tx == nil {
		return
	}
	pc := PaymentContext{
		TransactionID: g.tx.TransactionID,
		AgentID:       derefOrEmpty(g.tx.AgentID),
		FeatureName:   g.tx.FeatureName,
		Phone:         derefOrEmpty(g.tx.Phone),
		Email:         derefOrEmpty(g.tx.Email),
		Method:        g.tx.Method,
		SavedAt:       g.clock.Now(),
	}
	if err := g.store.Save(ctx, pc); err != nil {
		slog.Warn("Failed to persist payment context", "transaction_id", pc.TransactionID, "error", err)
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
