package event

import "time"

// PaymentEventModel is the message published to the payment_events queue
// whenever a transaction reaches a terminal status.
type PaymentEventModel struct {
	TransactionID  string    `json:"transaction_id"`
	AgentID        string    `json:"agent_id,omitempty"`
	FeatureName    string    `json:"feature_name"`
	Status         string    `json:"status"`
	ProviderStatus string    `json:"provider_status,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Attempts       int       `json:"attempts"`
	OccurredAt     time.Time `json:"occurred_at"`
}

const PaymentEventsQueue string = "payment_events"
