package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"compliance-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) CreateReport(ctx context.Context, report *models.ComplianceReportRecord) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()
	report.UpdatedAt = time.Now()

	slog.Info("Creating compliance report",
		"report_id", report.ID,
		"feature_name", report.FeatureName,
		"status", report.Status)

	query := `
		INSERT INTO compliance_report (
			id, transaction_id, owner_id, feature_name, boundary,
			area_hectares, area_square_meters, tree_cover_loss_hectares,
			has_forest_cover, compliance_status, dominant_loss_driver,
			status, export_object_name, created_at, updated_at
		) VALUES (
			:id, :transaction_id, :owner_id, :feature_name, :boundary,
			:area_hectares, :area_square_meters, :tree_cover_loss_hectares,
			:has_forest_cover, :compliance_status, :dominant_loss_driver,
			:status, :export_object_name, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, report)
	if err != nil {
		return fmt.Errorf("failed to create compliance report: %w", err)
	}
	return nil
}

const updateReportQuery = `
		UPDATE compliance_report SET
			boundary = :boundary,
			area_hectares = :area_hectares,
			area_square_meters = :area_square_meters,
			tree_cover_loss_hectares = :tree_cover_loss_hectares,
			has_forest_cover = :has_forest_cover,
			compliance_status = :compliance_status,
			dominant_loss_driver = :dominant_loss_driver,
			status = :status,
			export_object_name = :export_object_name,
			updated_at = :updated_at
		WHERE id = :id`

func (r *ReportRepository) UpdateReport(ctx context.Context, report *models.ComplianceReportRecord) error {
	report.UpdatedAt = time.Now()

	result, err := r.db.NamedExecContext(ctx, updateReportQuery, report)
	if err != nil {
		return fmt.Errorf("failed to update compliance report: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("compliance report not found: %s", report.ID)
	}
	return nil
}

func (r *ReportRepository) GetReportByID(ctx context.Context, id uuid.UUID) (*models.ComplianceReportRecord, error) {
	var report models.ComplianceReportRecord
	query := `SELECT * FROM compliance_report WHERE id = $1`

	err := r.db.GetContext(ctx, &report, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("compliance report not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get compliance report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) GetReportByTransactionID(ctx context.Context, transactionID string) (*models.ComplianceReportRecord, error) {
	var report models.ComplianceReportRecord
	query := `SELECT * FROM compliance_report WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetContext(ctx, &report, query, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("compliance report not found for transaction %s", transactionID)
		}
		return nil, fmt.Errorf("failed to get compliance report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) ListReportsByOwner(ctx context.Context, ownerID string) ([]models.ComplianceReportRecord, error) {
	var reports []models.ComplianceReportRecord
	query := `SELECT * FROM compliance_report WHERE owner_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &reports, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance reports: %w", err)
	}
	return reports, nil
}
