package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"compliance-service/internal/compliance"
	"compliance-service/internal/database/minio"
	"compliance-service/internal/models"
	"compliance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const presignedExportExpiry = 24 * time.Hour

// ReportExportService renders a generated compliance report to PDF, stores
// it in object storage, and hands back a presigned download link.
type ReportExportService struct {
	reportRepo  *repository.ReportRepository
	minioClient *minio.MinioClient
}

func NewReportExportService(reportRepo *repository.ReportRepository, minioClient *minio.MinioClient) *ReportExportService {
	return &ReportExportService{
		reportRepo:  reportRepo,
		minioClient: minioClient,
	}
}

// ExportReport renders the report to PDF, uploads it, marks the record
// exported, and returns the presigned URL.
func (s *ReportExportService) ExportReport(ctx context.Context, reportID uuid.UUID) (string, error) {
	record, err := s.reportRepo.GetReportByID(ctx, reportID)
	if err != nil {
		return "", err
	}
	if record.Status == models.ReportPending {
		return "", fmt.Errorf("report %s has not been generated yet", reportID)
	}

	pdfData, err := renderReportPDF(record)
	if err != nil {
		return "", fmt.Errorf("failed to render report PDF: %w", err)
	}

	objectName := fmt.Sprintf("compliance-report-%s.pdf", record.ID)
	if err := s.minioClient.UploadBytes(ctx, minio.Storage.ReportExports, objectName, pdfData, "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to upload report PDF: %w", err)
	}

	record.ExportObjectName = &objectName
	record.Status = models.ReportExported
	if err := s.reportRepo.UpdateReport(ctx, record); err != nil {
		return "", err
	}

	url, err := s.minioClient.GetPresignedURL(ctx, minio.Storage.ReportExports, objectName, presignedExportExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign report PDF: %w", err)
	}

	slog.Info("Compliance report exported",
		"report_id", record.ID,
		"object_name", objectName)
	return url, nil
}

// ArchiveRawReport stores the raw dataset payload that produced a report, so
// assessments can be re-derived after dataset revisions.
func (s *ReportExportService) ArchiveRawReport(ctx context.Context, reportID uuid.UUID, raw compliance.RawReport) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw report: %w", err)
	}

	objectName := fmt.Sprintf("raw-report-%s.json", reportID)
	if err := s.minioClient.UploadBytes(ctx, minio.Storage.RawReports, objectName, data, "application/json"); err != nil {
		return fmt.Errorf("failed to archive raw report: %w", err)
	}
	return nil
}

// ArchiveBoundary stores the submitted boundary polygon as GeoJSON alongside
// the report's raw payload.
func (s *ReportExportService) ArchiveBoundary(ctx context.Context, reportID uuid.UUID, boundary *models.GeoJSONPolygon) error {
	if boundary == nil {
		return nil
	}
	data, err := json.Marshal(boundary)
	if err != nil {
		return fmt.Errorf("failed to marshal boundary: %w", err)
	}

	objectName := fmt.Sprintf("boundary-%s.geojson", reportID)
	if err := s.minioClient.UploadBytes(ctx, minio.Storage.PolygonUploads, objectName, data, "application/geo+json"); err != nil {
		return fmt.Errorf("failed to archive boundary: %w", err)
	}
	return nil
}

// renderReportPDF builds a one-page PDF from a pdfcpu JSON page description.
func renderReportPDF(record *models.ComplianceReportRecord) ([]byte, error) {
	lines := reportLines(record)

	texts := make([]map[string]any, 0, len(lines)+1)
	texts = append(texts, map[string]any{
		"value":     "Land Compliance Report",
		"anchor":    "tl",
		"dx":        40,
		"dy":        -40,
		"font":      map[string]any{"name": "Helvetica-Bold", "size": 18},
		"fillcolor": "#1A5632",
	})
	y := -80
	for _, line := range lines {
		texts = append(texts, map[string]any{
			"value":  line,
			"anchor": "tl",
			"dx":     40,
			"dy":     y,
			"font":   map[string]any{"name": "Helvetica", "size": 11},
		})
		y -= 20
	}

	description := map[string]any{
		"pages": map[string]any{
			"1": map[string]any{
				"content": map[string]any{
					"text": texts,
				},
			},
		},
	}

	descJSON, err := json.Marshal(description)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page description: %w", err)
	}

	var out bytes.Buffer
	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.Create(nil, bytes.NewReader(descJSON), &out, conf); err != nil {
		return nil, fmt.Errorf("pdf creation failed: %w", err)
	}

	return out.Bytes(), nil
}

func reportLines(record *models.ComplianceReportRecord) []string {
	lines := []string{
		fmt.Sprintf("Report ID: %s", record.ID),
		fmt.Sprintf("Feature: %s", record.FeatureName),
		fmt.Sprintf("Compliance status: %s", formatStatus(string(record.ComplianceStatus))),
	}
	if record.TransactionID != nil {
		lines = append(lines, fmt.Sprintf("Transaction: %s", *record.TransactionID))
	}
	if record.AreaHectares != nil {
		lines = append(lines, fmt.Sprintf("Area: %.2f ha", *record.AreaHectares))
	}
	lines = append(lines,
		fmt.Sprintf("Tree cover loss: %.2f ha", record.TreeCoverLossHectares),
		fmt.Sprintf("Forest cover present: %t", record.HasForestCover),
	)
	if record.DominantLossDriver != "" {
		lines = append(lines, fmt.Sprintf("Dominant loss driver: %s", record.DominantLossDriver))
	}
	lines = append(lines, fmt.Sprintf("Generated: %s", record.UpdatedAt.Format("2006-01-02 15:04 MST")))
	return lines
}

func formatStatus(status string) string {
	return strings.ToUpper(strings.ReplaceAll(status, "_", " "))
}
