package models

// ============================================================================
// PAYMENT REQUESTS
// ============================================================================

type OpenPaymentRequest struct {
	FeatureName string  `json:"feature_name"`
	AgentID     *string `json:"agent_id,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
}

type SelectMethodRequest struct {
	Method PaymentMethod `json:"method"`
}

type SubmitPaymentRequest struct {
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

// ============================================================================
// FEATURE PRICING REQUESTS
// ============================================================================

type CreateFeatureRequest struct {
	FeatureName  string  `json:"feature_name"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DurationDays *int    `json:"duration_days,omitempty"`
}

type UpdateFeatureRequest struct {
	Price        *float64 `json:"price,omitempty"`
	Currency     *string  `json:"currency,omitempty"`
	DurationDays *int     `json:"duration_days,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

// ============================================================================
// REPORT REQUESTS
// ============================================================================

// DeriveReportRequest asks for a pure derivation of an already-fetched raw
// report; nothing is persisted.
type DeriveReportRequest struct {
	RawReport map[string]any `json:"raw_report"`
	Polygon   [][]float64    `json:"polygon,omitempty"`
}

// GenerateReportRequest asks the service to fetch a raw report for the
// polygon and persist the derived summary. The transaction id must belong to
// a verified payment for the named feature.
type GenerateReportRequest struct {
	TransactionID string          `json:"transaction_id"`
	FeatureName   string          `json:"feature_name"`
	OwnerID       *string         `json:"owner_id,omitempty"`
	Boundary      *GeoJSONPolygon `json:"boundary"`
}
