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

type FeatureRepository struct {
	db *sqlx.DB
}

func NewFeatureRepository(db *sqlx.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

func (r *FeatureRepository) CreateFeature(ctx context.Context, feature *models.ReportFeature) error {
	if feature.ID == uuid.Nil {
		feature.ID = uuid.New()
	}
	feature.CreatedAt = time.Now()
	feature.UpdatedAt = time.Now()

	slog.Info("Creating report feature", "feature_name", feature.FeatureName, "price", feature.Price)

	query := `
		INSERT INTO report_feature (
			id, feature_name, price, currency, duration_days, is_active, created_at, updated_at
		) VALUES (
			:id, :feature_name, :price, :currency, :duration_days, :is_active, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, feature)
	if err != nil {
		return fmt.Errorf("failed to create report feature: %w", err)
	}
	return nil
}

func (r *FeatureRepository) GetFeatureByName(ctx context.Context, featureName string) (*models.ReportFeature, error) {
	var feature models.ReportFeature
	query := `SELECT * FROM report_feature WHERE feature_name = $1 AND is_active = true`

	err := r.db.GetContext(ctx, &feature, query, featureName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report feature not found: %s", featureName)
		}
		return nil, fmt.Errorf("failed to get report feature: %w", err)
	}
	return &feature, nil
}

func (r *FeatureRepository) ListFeatures(ctx context.Context, includeInactive bool) ([]models.ReportFeature, error) {
	var features []models.ReportFeature
	query := `SELECT * FROM report_feature ORDER BY feature_name`
	if !includeInactive {
		query = `SELECT * FROM report_feature WHERE is_active = true ORDER BY feature_name`
	}

	err := r.db.SelectContext(ctx, &features, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list report features: %w", err)
	}
	return features, nil
}

func (r *FeatureRepository) UpdateFeature(ctx context.Context, feature *models.ReportFeature) error {
	feature.UpdatedAt = time.Now()

	query := `
		UPDATE report_feature SET
			price = :price,
			currency = :currency,
			duration_days = :duration_days,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, feature)
	if err != nil {
		return fmt.Errorf("failed to update report feature: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report feature not found: %s", feature.ID)
	}
	return nil
}

func (r *FeatureRepository) DeactivateFeature(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE report_feature SET is_active = false, updated_at = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate report feature: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report feature not found: %s", id)
	}
	return nil
}
