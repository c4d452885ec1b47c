package models

// PaymentMethod identifies which payment rail a transaction uses.
type PaymentMethod string

const (
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodCardOrDPO   PaymentMethod = "card_or_mobile_dpo"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodMobileMoney, MethodCardOrDPO:
		return true
	default:
		return false
	}
}

// TransactionStatus is the lifecycle state of a payment transaction.
// Transitions only ever move forward; terminal states never change.
type TransactionStatus string

const (
	TransactionCreated              TransactionStatus = "created"
	TransactionAwaitingConfirmation TransactionStatus = "awaiting_confirmation"
	TransactionVerified             TransactionStatus = "verified"
	TransactionFailed               TransactionStatus = "failed"
	TransactionTimedOut             TransactionStatus = "timed_out"
)

// IsTerminal reports whether the status is final.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionVerified, TransactionFailed, TransactionTimedOut:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is allowed.
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	validTransitions := map[TransactionStatus][]TransactionStatus{
		TransactionCreated:              {TransactionAwaitingConfirmation},
		TransactionAwaitingConfirmation: {TransactionVerified, TransactionFailed, TransactionTimedOut},
		// No transitions out of terminal states.
		TransactionVerified: {},
		TransactionFailed:   {},
		TransactionTimedOut: {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, validTo := range allowed {
		if validTo == to {
			return true
		}
	}

	return false
}

// ComplianceStatus is the derived deforestation-compliance verdict for a plot.
type ComplianceStatus string

const (
	ComplianceFullyCompliant    ComplianceStatus = "fully_compliant"
	ComplianceLikelyCompliant   ComplianceStatus = "likely_compliant"
	ComplianceNotCompliant      ComplianceStatus = "not_compliant"
	ComplianceAssessmentPending ComplianceStatus = "assessment_pending"
)

// ReportStatus is the lifecycle state of a stored compliance report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportGenerated ReportStatus = "generated"
	ReportExported  ReportStatus = "exported"
	ReportFailed    ReportStatus = "failed"
)
