package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// STORED COMPLIANCE REPORTS
// ============================================================================

// ComplianceReportRecord is the persisted result of a report derivation,
// listed in the admin console and exportable as a PDF document.
type ComplianceReportRecord struct {
	ID                    uuid.UUID        `json:"id" db:"id"`
	TransactionID         *string          `json:"transaction_id,omitempty" db:"transaction_id"`
	OwnerID               *string          `json:"owner_id,omitempty" db:"owner_id"`
	FeatureName           string           `json:"feature_name" db:"feature_name"`
	Boundary              *GeoJSONPolygon  `json:"boundary,omitempty" db:"boundary"`
	AreaHectares          *float64         `json:"area_hectares,omitempty" db:"area_hectares"`
	AreaSquareMeters      *float64         `json:"area_square_meters,omitempty" db:"area_square_meters"`
	TreeCoverLossHectares float64          `json:"tree_cover_loss_hectares" db:"tree_cover_loss_hectares"`
	HasForestCover        bool             `json:"has_forest_cover" db:"has_forest_cover"`
	ComplianceStatus      ComplianceStatus `json:"compliance_status" db:"compliance_status"`
	DominantLossDriver    string           `json:"dominant_loss_driver" db:"dominant_loss_driver"`
	Status                ReportStatus     `json:"status" db:"status"`
	ExportObjectName      *string          `json:"export_object_name,omitempty" db:"export_object_name"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`
}
