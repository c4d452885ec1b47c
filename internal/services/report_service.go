package services

import (
	"context"
	"fmt"
	"log/slog"

	"compliance-service/internal/compliance"
	"compliance-service/internal/forestwatch"
	"compliance-service/internal/models"

	"github.com/google/uuid"
)

// TransactionLookup resolves a payment transaction by id.
// *repository.TransactionRepository satisfies it.
type TransactionLookup interface {
	GetTransactionByID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
}

// ReportStore persists compliance report records.
// *repository.ReportRepository satisfies it.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.ComplianceReportRecord) error
	UpdateReport(ctx context.Context, report *models.ComplianceReportRecord) error
	GetReportByID(ctx context.Context, id uuid.UUID) (*models.ComplianceReportRecord, error)
	GetReportByTransactionID(ctx context.Context, transactionID string) (*models.ComplianceReportRecord, error)
	ListReportsByOwner(ctx context.Context, ownerID string) ([]models.ComplianceReportRecord, error)
}

// ReportArchiver stores the artifacts behind a generated report: the raw
// dataset payload and the submitted boundary polygon.
type ReportArchiver interface {
	ArchiveRawReport(ctx context.Context, reportID uuid.UUID, raw compliance.RawReport) error
	ArchiveBoundary(ctx context.Context, reportID uuid.UUID, boundary *models.GeoJSONPolygon) error
}

// ReportService turns polygons into compliance reports: it fetches the raw
// forest datasets, derives the assessment, and persists the result. Report
// generation is a paid feature; it only runs against a verified payment
// transaction for the same feature.
type ReportService struct {
	reportRepo ReportStore
	txs        TransactionLookup
	forestData *forestwatch.Client
	archiver   ReportArchiver
}

// NewReportService creates a report service. archiver may be nil when
// artifact archival is not wanted.
func NewReportService(reportRepo ReportStore, txs TransactionLookup, forestData *forestwatch.Client, archiver ReportArchiver) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		txs:        txs,
		forestData: forestData,
		archiver:   archiver,
	}
}

// DeriveAssessment computes a compliance assessment from a caller-supplied
// raw dataset map and polygon, without touching storage or the network.
func (s *ReportService) DeriveAssessment(req models.DeriveReportRequest) compliance.Report {
	raw := compliance.FromAny(req.RawReport)
	return compliance.Derive(raw, req.Polygon)
}

// CreatePendingReport opens a report record for a verified payment. The
// assessment itself runs later, when the boundary polygon arrives.
func (s *ReportService) CreatePendingReport(ctx context.Context, tx *models.PaymentTransaction) (*models.ComplianceReportRecord, error) {
	record := &models.ComplianceReportRecord{
		ID:               uuid.New(),
		TransactionID:    &tx.TransactionID,
		OwnerID:          tx.AgentID,
		FeatureName:      tx.FeatureName,
		ComplianceStatus: models.ComplianceAssessmentPending,
		Status:           models.ReportPending,
	}

	if err := s.reportRepo.CreateReport(ctx, record); err != nil {
		return nil, err
	}

	slog.Info("Opened pending compliance report",
		"report_id", record.ID,
		"transaction_id", tx.TransactionID)
	return record, nil
}

// authorizeGeneration checks that the transaction pays for the requested
// feature: it must exist, be verified, and name the same feature.
func (s *ReportService) authorizeGeneration(ctx context.Context, req models.GenerateReportRequest) (*models.PaymentTransaction, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("report generation requires a verified payment transaction id")
	}

	tx, err := s.txs.GetTransactionByID(ctx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("report generation requires a verified payment: %w", err)
	}
	if tx.Status != models.TransactionVerified {
		return nil, fmt.Errorf("report generation requires a verified payment, transaction %s is %s", tx.TransactionID, tx.Status)
	}
	if req.FeatureName != "" && req.FeatureName != tx.FeatureName {
		return nil, fmt.Errorf("report generation requires a verified payment for feature %q, transaction %s paid for %q",
			req.FeatureName, tx.TransactionID, tx.FeatureName)
	}
	return tx, nil
}

// GenerateReport fetches the raw datasets for the boundary, derives the
// assessment, and persists a generated report. The transaction id must
// belong to a verified payment for the same feature. When a pending report
// already exists for the transaction it is filled in rather than duplicated.
func (s *ReportService) GenerateReport(ctx context.Context, req models.GenerateReportRequest) (*models.ComplianceReportRecord, *compliance.Report, error) {
	tx, err := s.authorizeGeneration(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if req.Boundary == nil {
		return nil, nil, fmt.Errorf("report boundary is required")
	}
	ring := req.Boundary.OuterRing()
	if len(ring) == 0 {
		return nil, nil, fmt.Errorf("report boundary has no outer ring")
	}

	var record *models.ComplianceReportRecord
	if existing, err := s.reportRepo.GetReportByTransactionID(ctx, req.TransactionID); err == nil {
		record = existing
		record.Boundary = req.Boundary
	} else {
		owner := req.OwnerID
		if owner == nil {
			owner = tx.AgentID
		}
		record = &models.ComplianceReportRecord{
			ID:            uuid.New(),
			TransactionID: &req.TransactionID,
			FeatureName:   tx.FeatureName,
			OwnerID:       owner,
			Boundary:      req.Boundary,
			Status:        models.ReportPending,
		}
		if err := s.reportRepo.CreateReport(ctx, record); err != nil {
			return nil, nil, err
		}
	}

	raw, err := s.forestData.FetchRawReport(ctx, ring)
	if err != nil {
		record.Status = models.ReportFailed
		if updateErr := s.reportRepo.UpdateReport(ctx, record); updateErr != nil {
			slog.Error("Failed to mark report as failed", "report_id", record.ID, "error", updateErr)
		}
		return nil, nil, fmt.Errorf("failed to fetch forest datasets: %w", err)
	}

	s.archiveArtifacts(ctx, record.ID, raw, req.Boundary)

	assessment := compliance.Derive(raw, ring)

	record.Boundary = req.Boundary
	record.AreaHectares = assessment.AreaHectares
	record.AreaSquareMeters = assessment.AreaSquareMeters
	record.TreeCoverLossHectares = assessment.TreeCoverLossHectares
	record.HasForestCover = assessment.HasForestCover
	record.ComplianceStatus = assessment.Status
	record.DominantLossDriver = assessment.DominantLossDriver
	record.Status = models.ReportGenerated

	if err := s.reportRepo.UpdateReport(ctx, record); err != nil {
		return nil, nil, err
	}

	slog.Info("Compliance report generated",
		"report_id", record.ID,
		"compliance_status", record.ComplianceStatus,
		"dominant_loss_driver", record.DominantLossDriver)

	return record, &assessment, nil
}

// archiveArtifacts stores the raw payload and the boundary; failures only
// log, the report itself is already persisted in Postgres.
func (s *ReportService) archiveArtifacts(ctx context.Context, reportID uuid.UUID, raw compliance.RawReport, boundary *models.GeoJSONPolygon) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveRawReport(ctx, reportID, raw); err != nil {
		slog.Warn("Failed to archive raw report", "report_id", reportID, "error", err)
	}
	if err := s.archiver.ArchiveBoundary(ctx, reportID, boundary); err != nil {
		slog.Warn("Failed to archive report boundary", "report_id", reportID, "error", err)
	}
}

func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*models.ComplianceReportRecord, error) {
	return s.reportRepo.GetReportByID(ctx, id)
}

func (s *ReportService) GetReportByTransaction(ctx context.Context, transactionID string) (*models.ComplianceReportRecord, error) {
	return s.reportRepo.GetReportByTransactionID(ctx, transactionID)
}

func (s *ReportService) ListReportsByOwner(ctx context.Context, ownerID string) ([]models.ComplianceReportRecord, error) {
	return s.reportRepo.ListReportsByOwner(ctx, ownerID)
}
