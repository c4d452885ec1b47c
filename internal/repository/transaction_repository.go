package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"compliance-service/internal/models"

	"github.com/jmoiron/sqlx"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	slog.Info("Creating payment transaction",
		"transaction_id", tx.TransactionID,
		"feature_name", tx.FeatureName,
		"status", tx.Status)

	query := `
		INSERT INTO payment_transaction (
			transaction_id, agent_id, method, feature_name, phone, email, currency,
			status, external_token, payment_url, failure_message, poll_attempts,
			created_at, submitted_at, completed_at
		) VALUES (
			:transaction_id, :agent_id, :method, :feature_name, :phone, :email, :currency,
			:status, :external_token, :payment_url, :failure_message, :poll_attempts,
			:created_at, :submitted_at, :completed_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, tx)
	if err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) UpdateTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	query := `
		UPDATE payment_transaction SET
			method = :method,
			phone = :phone,
			email = :email,
			currency = :currency,
			status = :status,
			external_token = :external_token,
			payment_url = :payment_url,
			failure_message = :failure_message,
			poll_attempts = :poll_attempts,
			submitted_at = :submitted_at,
			completed_at = :completed_at
		WHERE transaction_id = :transaction_id`

	result, err := r.db.NamedExecContext(ctx, query, tx)
	if err != nil {
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment transaction not found: %s", tx.TransactionID)
	}
	return nil
}

func (r *TransactionRepository) GetTransactionByID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	query := `SELECT * FROM payment_transaction WHERE transaction_id = $1`

	err := r.db.GetContext(ctx, &tx, query, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("payment transaction not found: %s", transactionID)
		}
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}
	return &tx, nil
}

func (r *TransactionRepository) ListTransactionsByAgent(ctx context.Context, agentID string) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	query := `SELECT * FROM payment_transaction WHERE agent_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &txs, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return txs, nil
}

// ListStaleAwaitingTransactions returns transactions stuck in awaiting
// confirmation past the cutoff, for the timeout sweep.
func (r *TransactionRepository) ListStaleAwaitingTransactions(ctx context.Context, cutoff time.Time) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	query := `
		SELECT * FROM payment_transaction
		WHERE status = $1 AND submitted_at < $2
		ORDER BY submitted_at ASC`

	err := r.db.SelectContext(ctx, &txs, query, models.TransactionAwaitingConfirmation, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	return txs, nil
}
