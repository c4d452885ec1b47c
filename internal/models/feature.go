package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportFeature is a purchasable report product with its price.
type ReportFeature struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FeatureName  string    `json:"feature_name" db:"feature_name"`
	Price        float64   `json:"price" db:"price"`
	Currency     string    `json:"currency" db:"currency"`
	DurationDays *int      `json:"duration_days,omitempty" db:"duration_days"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
