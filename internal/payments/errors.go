package payments

import (
	"errors"
	"fmt"
)

// ErrConfirmationInFlight is returned when an operation would disturb a
// transaction that is awaiting confirmation; the in-flight poll must resolve
// on its own.
var ErrConfirmationInFlight = errors.New("payment confirmation already in progress")

// ErrNoOpenTransaction is returned when Submit is called before Open.
var ErrNoOpenTransaction = errors.New("no open payment transaction")

// ErrTransactionCompleted is returned when Submit is called after the active
// transaction reached a terminal status.
var ErrTransactionCompleted = errors.New("payment transaction already completed")

// ValidationError reports a missing or invalid field caught before any
// network call; the user can correct the input and submit again.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// InitiationError wraps a provider failure while starting the transaction.
// The transaction stays in its created state and Submit may be retried.
type InitiationError struct {
	Err error
}

func (e *InitiationError) Error() string {
	return fmt.Sprintf("payment initiation failed: %v", e.Err)
}

func (e *InitiationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a pre-network validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInitiationError reports whether err is a retryable initiation failure.
func IsInitiationError(err error) bool {
	var ie *InitiationError
	return errors.As(err, &ie)
}
