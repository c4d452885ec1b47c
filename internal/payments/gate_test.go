package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"compliance-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// fakeClock advances instantly so even the 6000-attempt card poll runs in
// test time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

type fakePrices struct {
	feature *models.ReportFeature
	err     error
}

func (p *fakePrices) FeaturePrice(ctx context.Context, featureName string) (*models.ReportFeature, error) {
	return p.feature, p.err
}

// fakeMomo serves a scripted sequence of statuses; errors in the sequence are
// returned as transport failures. The last entry repeats.
type fakeMomo struct {
	mu       sync.Mutex
	statuses []string
	errAt    map[int]error
	calls    int
}

func (m *fakeMomo) Initiate(ctx context.Context, init MobileMoneyInitiation) (string, error) {
	return "prompt sent", nil
}

func (m *fakeMomo) Status(ctx context.Context, transactionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.calls
	m.calls++
	if err, ok := m.errAt[call]; ok {
		return "", err
	}
	if len(m.statuses) == 0 {
		return "Pending", nil
	}
	if call >= len(m.statuses) {
		return m.statuses[len(m.statuses)-1], nil
	}
	return m.statuses[call], nil
}

func (m *fakeMomo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// gatedMomo blocks every status poll until the test feeds it a result, so
// the awaiting state can be observed without racing the poll goroutine.
type gatedMomo struct {
	results chan string
}

func newGatedMomo() *gatedMomo {
	return &gatedMomo{results: make(chan string)}
}

func (m *gatedMomo) Initiate(ctx context.Context, init MobileMoneyInitiation) (string, error) {
	return "prompt sent", nil
}

func (m *gatedMomo) Status(ctx context.Context, transactionID string) (string, error) {
	select {
	case status := <-m.results:
		return status, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type fakeCard struct {
	mu          sync.Mutex
	initErr     error
	statuses    []string
	calls       int
	verifyError error
	gate        chan string
}

func (c *fakeCard) Initiate(ctx context.Context, init CardInitiation) (*CardInitiationResult, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}
	return &CardInitiationResult{
		PaymentURL: "https://pay.example.com/abc",
		TransToken: "tok-123",
	}, nil
}

func (c *fakeCard) Verify(ctx context.Context, transToken string) (*CardVerification, error) {
	if c.gate != nil {
		select {
		case status := <-c.gate:
			return &CardVerification{Status: status, Amount: 25, Currency: "USD"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	call := c.calls
	c.calls++
	if c.verifyError != nil {
		return nil, c.verifyError
	}
	if len(c.statuses) == 0 {
		return &CardVerification{Status: "pending"}, nil
	}
	status := c.statuses[len(c.statuses)-1]
	if call < len(c.statuses) {
		status = c.statuses[call]
	}
	return &CardVerification{Status: status, Amount: 25, Currency: "USD"}, nil
}

type terminalRecorder struct {
	mu      sync.Mutex
	details []TerminalDetails
}

func (r *terminalRecorder) record(details TerminalDetails) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, details)
}

func (r *terminalRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.details)
}

func (r *terminalRecorder) last() TerminalDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.details[len(r.details)-1]
}

func newTestGate(momo MobileMoneyProvider, card CardProvider) (*Gate, *terminalRecorder) {
	gate := NewGate(
		GateConfig{PollInterval: 3 * time.Second},
		&fakePrices{feature: &models.ReportFeature{FeatureName: "eudr_report", Price: 25}},
		momo,
		card,
		newFakeClock(),
		nil,
	)
	recorder := &terminalRecorder{}
	gate.OnTerminal(recorder.record)
	return gate, recorder
}

func openAndSubmitMomo(t *testing.T, gate *Gate) *models.PaymentTransaction {
	t.Helper()
	ctx := context.Background()

	tx, err := gate.Open(ctx, OpenOptions{FeatureName: "eudr_report", AgentID: "agent-7", Phone: "+256700000001"})
	require.NoError(t, err)
	require.NoError(t, gate.SelectMethod(models.MethodMobileMoney))
	require.NoError(t, gate.Submit(ctx, SubmitInput{}))
	return tx
}

func waitForPoll(t *testing.T, gate *Gate) {
	t.Helper()
	select {
	case <-gate.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("confirmation poll did not finish")
	}
}

// ============================================================================
// TEST SUITE 1: OPEN AND TRANSACTION IDENTITY
// ============================================================================

func TestOpen_AssignsAgentScopedTransactionID(t *testing.T) {
	gate, _ := newTestGate(&fakeMomo{}, &fakeCard{})

	tx, err := gate.Open(context.Background(), OpenOptions{FeatureName: "eudr_report", AgentID: "agent-7"})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionCreated, tx.Status)
	assert.Regexp(t, `^agent-7-\d+$`, tx.TransactionID)
}

func TestOpen_AnonymousAgentGetsAnonPrefix(t *testing.T) {
	gate, _ := newTestGate(&fakeMomo{}, &fakeCard{})

	tx, err := gate.Open(context.Background(), OpenOptions{FeatureName: "eudr_report"})
	require.NoError(t, err)

	assert.Regexp(t, `^anon-\d+$`, tx.TransactionID)
	assert.Nil(t, tx.AgentID)
}

func TestOpen_RequiresFeatureName(t *testing.T) {
	gate, _ := newTestGate(&fakeMomo{}, &fakeCard{})

	_, err := gate.Open(context.Background(), OpenOptions{})
	assert.True(t, IsValidationError(err))
}

func TestOpen_PriceLookupFailureIsNotFatal(t *testing.T) {
	gate := NewGate(
		GateConfig{},
		&fakePrices{err: errors.New("pricing service down")},
		&fakeMomo{},
		&fakeCard{},
		newFakeClock(),
		nil,
	)

	tx, err := gate.Open(context.Background(), OpenOptions{FeatureName: "eudr_report"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCreated, tx.Status)
	assert.Nil(t, gate.Price())
}

func TestOpen_IgnoredWhileConfirmationInFlight(t *testing.T) {
	momo := newGatedMomo()
	gate, _ := newTestGate(momo, &fakeCard{})
	tx := openAndSubmitMomo(t, gate)

	again, err := gate.Open(context.Background(), OpenOptions{FeatureName: "other_feature", AgentID: "agent-9"})
	require.NoError(t, err)

	assert.Equal(t, tx.TransactionID, again.TransactionID)
	assert.Equal(t, "eudr_report", again.FeatureName)

	momo.results <- "SUCCESS"
	waitForPoll(t, gate)
}

// ============================================================================
// TEST SUITE 2: SUBMIT VALIDATION AND INITIATION
// ============================================================================

func TestSubmit_MobileMoneyRequiresPhone(t *testing.T) {
	gate, _ := newTestGate(&fakeMomo{}, &fakeCard{})
	ctx := context.Background()

	_, err := gate.Open(ctx, OpenOptions{FeatureName: "eudr_report"})
	require.NoError(t, err)
	require.NoError(t, gate.SelectMethod(models.MethodMobileMoney))

	err = gate.Submit(ctx, SubmitInput{})
	assert.True(t, IsValidationError(err))
	assert.Equal(t, models.TransactionCreated, gate.Transaction().Status)
}

func TestSubmit_CardRequiresCurrency(t *testing.T) {
	gate, _ := newTestGate(&fakeMomo{}, &fakeCard{})
	ctx := context.Background()

	_, err := gate.Open(ctx, OpenOptions{FeatureName: "eudr_report"})
	require.NoError(t, err)
	require.NoError(t, gate.SelectMethod(models.MethodCardOrDPO))

	err = gate.Submit(ctx, SubmitInput{Email: "a@b.com"})
	assert.True(t, IsValidationError(err))
}

func TestSubmit_WithoutMethodFailsValidation(t *testing.T) {
	gate, _ := newTestGate(&fakeMomo{}, &fakeCard{})
	ctx := context.Background()

	_, err := gate.Open(ctx, OpenOptions{FeatureName: "eudr_report"})
	require.NoError(t, err)

	err = gate.Submit(ctx, SubmitInput{Phone: "+256700000001"})
	assert.True(t, IsValidationError(err))
}

func TestSubmit_InitiationFailureKeepsTransactionRetryable(t *testing.T) {
	card := &fakeCard{initErr: errors.New("gateway unreachable"), gate: make(chan string)}
	gate, recorder := newTestGate(&fakeMomo{}, card)
	ctx := context.Background()

	tx, err := gate.Open(ctx, OpenOptions{FeatureName: "eudr_report", AgentID: "agent-7"})
	require.NoError(t, err)
	require.NoError(t, gate.SelectMethod(models.MethodCardOrDPO))

	err = gate.Submit(ctx, SubmitInput{Currency: "USD", Email: "a@b.com"})
	assert.True(t, IsInitiationError(err))
	assert.Equal(t, models.TransactionCreated, gate.Transaction().Status)
	assert.Equal(t, 0, recorder.count())

	// Same transaction id on retry after the outage clears.
	card.initErr = nil
	require.NoError(t, gate.Submit(ctx, SubmitInput{Currency: "USD"}))
	assert.Equal(t, tx.TransactionID, gate.Transaction().TransactionID)
	assert.Equal(t, models.TransactionAwaitingConfirmation, gate.Transaction().Status)

	gate.Close()
	waitForPoll(t, gate)
}

// ============================================================================
// TEST SUITE 3: MOBILE MONEY CONFIRMATION POLL
// ============================================================================

func TestMobileMoneyPoll_SuccessStatusVerifies(t *testing.T) {
	momo := &fakeMomo{statuses: []string{"Pending", "Pending", "Transaction SUCCESS"}}
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionVerified, gate.Transaction().Status)
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, models.TransactionVerified, recorder.last().Status)
	assert.Equal(t, 3, recorder.last().Attempts)
}

func TestMobileMoneyPoll_ConfirmedStatusVerifies(t *testing.T) {
	momo := &fakeMomo{statuses: []string{"payment confirmed by subscriber"}}
	gate, _ := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionVerified, gate.Transaction().Status)
}

func TestMobileMoneyPoll_RejectedStatusFails(t *testing.T) {
	momo := &fakeMomo{statuses: []string{"Pending", "Rejected by user"}}
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)

	tx := gate.Transaction()
	assert.Equal(t, models.TransactionFailed, tx.Status)
	require.NotNil(t, tx.FailureMessage)
	assert.Equal(t, "Rejected by user", *tx.FailureMessage)
	assert.Equal(t, models.TransactionFailed, recorder.last().Status)
}

func TestMobileMoneyPoll_TimesOutAfterMaxAttempts(t *testing.T) {
	momo := &fakeMomo{statuses: []string{"Pending"}}
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionTimedOut, gate.Transaction().Status)
	assert.Equal(t, 40, momo.callCount())
	assert.Equal(t, 40, recorder.last().Attempts)
}

func TestMobileMoneyPoll_TransientErrorsCountButDoNotFail(t *testing.T) {
	momo := &fakeMomo{
		statuses: []string{"Pending", "Pending", "Pending", "SUCCESS"},
		errAt: map[int]error{
			1: errors.New("connection reset"),
			2: errors.New("timeout"),
		},
	}
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionVerified, gate.Transaction().Status)
	assert.Equal(t, 4, recorder.last().Attempts)
}

// ============================================================================
// TEST SUITE 4: CARD CONFIRMATION POLL
// ============================================================================

func submitCard(t *testing.T, gate *Gate) {
	t.Helper()
	ctx := context.Background()

	_, err := gate.Open(ctx, OpenOptions{FeatureName: "eudr_report", AgentID: "agent-7"})
	require.NoError(t, err)
	require.NoError(t, gate.SelectMethod(models.MethodCardOrDPO))
	require.NoError(t, gate.Submit(ctx, SubmitInput{Currency: "USD", Email: "a@b.com"}))
}

func TestCardPoll_VerifiedStatus(t *testing.T) {
	card := &fakeCard{statuses: []string{"pending", "verified"}}
	gate, recorder := newTestGate(&fakeMomo{}, card)

	submitCard(t, gate)

	tx := gate.Transaction()
	require.NotNil(t, tx.ExternalToken)
	assert.Equal(t, "tok-123", *tx.ExternalToken)
	require.NotNil(t, tx.PaymentURL)

	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionVerified, gate.Transaction().Status)
	require.NotNil(t, recorder.last().Verification)
	assert.Equal(t, 25.0, recorder.last().Verification.Amount)
}

func TestCardPoll_FailedStatus(t *testing.T) {
	card := &fakeCard{statuses: []string{"failed"}}
	gate, recorder := newTestGate(&fakeMomo{}, card)

	submitCard(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionFailed, gate.Transaction().Status)
	assert.Equal(t, 1, recorder.last().Attempts)
}

func TestCardPoll_TimesOutAtCeiling(t *testing.T) {
	card := &fakeCard{statuses: []string{"pending"}}
	gate, recorder := newTestGate(&fakeMomo{}, card)

	submitCard(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionTimedOut, gate.Transaction().Status)
	assert.Equal(t, 6000, recorder.last().Attempts)
}

// ============================================================================
// TEST SUITE 5: TERMINAL SEMANTICS, CANCEL, CLOSE
// ============================================================================

func TestTerminalCallback_FiresExactlyOnce(t *testing.T) {
	momo := &fakeMomo{statuses: []string{"SUCCESS"}}
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)

	assert.Equal(t, 1, recorder.count())

	// Resubmitting a terminal transaction cannot fire another event.
	err := gate.Submit(context.Background(), SubmitInput{})
	assert.ErrorIs(t, err, ErrTransactionCompleted)
	assert.Equal(t, 1, recorder.count())
}

func TestTerminalStatus_NeverChanges(t *testing.T) {
	momo := &fakeMomo{statuses: []string{"failed: insufficient funds"}}
	gate, _ := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	waitForPoll(t, gate)
	require.Equal(t, models.TransactionFailed, gate.Transaction().Status)

	err := gate.Cancel()
	require.NoError(t, err)
	assert.Nil(t, gate.Transaction())
}

func TestCancel_IsNoOpWhileAwaitingConfirmation(t *testing.T) {
	momo := newGatedMomo()
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	require.NoError(t, gate.Cancel())
	assert.Equal(t, models.TransactionAwaitingConfirmation, gate.Transaction().Status)

	momo.results <- "SUCCESS"
	waitForPoll(t, gate)
	assert.Equal(t, models.TransactionVerified, gate.Transaction().Status)
	assert.Equal(t, 1, recorder.count())
}

func TestCancel_AbandonsCreatedTransaction(t *testing.T) {
	gate, recorder := newTestGate(&fakeMomo{}, &fakeCard{})

	_, err := gate.Open(context.Background(), OpenOptions{FeatureName: "eudr_report"})
	require.NoError(t, err)
	require.NoError(t, gate.Cancel())

	assert.Nil(t, gate.Transaction())
	assert.Equal(t, 0, recorder.count())
}

func TestClose_StopsPollWithoutTerminalEvent(t *testing.T) {
	momo := newGatedMomo()
	gate, recorder := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	gate.Close()
	waitForPoll(t, gate)

	assert.Equal(t, models.TransactionAwaitingConfirmation, gate.Transaction().Status)
	assert.Equal(t, 0, recorder.count())
}

func TestSubmit_SecondSubmitWhileAwaitingIsRejected(t *testing.T) {
	momo := newGatedMomo()
	gate, _ := newTestGate(momo, &fakeCard{})

	openAndSubmitMomo(t, gate)
	err := gate.Submit(context.Background(), SubmitInput{})
	assert.ErrorIs(t, err, ErrConfirmationInFlight)

	momo.results <- "SUCCESS"
	waitForPoll(t, gate)
}

// ============================================================================
// TEST SUITE 6: STATUS CLASSIFICATION
// ============================================================================

func TestClassifyMobileMoneyStatus(t *testing.T) {
	tests := []struct {
		status  string
		verdict pollVerdict
	}{
		{"Transaction SUCCESS", verdictVerified},
		{"success", verdictVerified},
		{"payment Confirmed", verdictVerified},
		{"FAILED: insufficient funds", verdictFailed},
		{"Rejected by user", verdictFailed},
		{"Pending", verdictPending},
		{"awaiting subscriber input", verdictPending},
		{"", verdictPending},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%q", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.verdict, classifyMobileMoneyStatus(tt.status))
		})
	}
}

func TestClassifyCardStatus(t *testing.T) {
	assert.Equal(t, verdictVerified, classifyCardStatus("verified"))
	assert.Equal(t, verdictVerified, classifyCardStatus("VERIFIED"))
	assert.Equal(t, verdictFailed, classifyCardStatus("failed"))
	assert.Equal(t, verdictPending, classifyCardStatus("pending"))
	assert.Equal(t, verdictPending, classifyCardStatus("anything else"))
}
