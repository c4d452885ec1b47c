package models

import "time"

// ============================================================================
// PAYMENT TRANSACTIONS
// ============================================================================

// PaymentTransaction is a single payment attempt for a named report feature.
// Exactly one transaction is active per payment gate at a time.
type PaymentTransaction struct {
	TransactionID string            `json:"transaction_id" db:"transaction_id"`
	AgentID       *string           `json:"agent_id,omitempty" db:"agent_id"`
	Method        PaymentMethod     `json:"method" db:"method"`
	FeatureName   string            `json:"feature_name" db:"feature_name"`
	Phone         *string           `json:"phone,omitempty" db:"phone"`
	Email         *string           `json:"email,omitempty" db:"email"`
	Currency      *string           `json:"currency,omitempty" db:"currency"`
	Status        TransactionStatus `json:"status" db:"status"`
	// ExternalToken is the provider token used to verify card/DPO payments.
	// Mobile money verification is keyed by TransactionID instead.
	ExternalToken  *string    `json:"external_token,omitempty" db:"external_token"`
	PaymentURL     *string    `json:"payment_url,omitempty" db:"payment_url"`
	FailureMessage *string    `json:"failure_message,omitempty" db:"failure_message"`
	PollAttempts   int        `json:"poll_attempts" db:"poll_attempts"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
