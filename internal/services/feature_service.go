package services

import (
	"context"
	"fmt"

	"compliance-service/internal/models"
	"compliance-service/internal/repository"

	"github.com/google/uuid"
)

type FeatureService struct {
	featureRepo *repository.FeatureRepository
}

func NewFeatureService(featureRepo *repository.FeatureRepository) *FeatureService {
	return &FeatureService{featureRepo: featureRepo}
}

func (s *FeatureService) CreateFeature(ctx context.Context, req models.CreateFeatureRequest) (*models.ReportFeature, error) {
	if req.FeatureName == "" {
		return nil, fmt.Errorf("feature name is required")
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("feature price cannot be negative")
	}

	feature := &models.ReportFeature{
		FeatureName:  req.FeatureName,
		Price:        req.Price,
		Currency:     req.Currency,
		DurationDays: req.DurationDays,
		IsActive:     true,
	}
	if feature.Currency == "" {
		feature.Currency = "USD"
	}

	if err := s.featureRepo.CreateFeature(ctx, feature); err != nil {
		return nil, err
	}
	return feature, nil
}

func (s *FeatureService) GetFeatureByName(ctx context.Context, featureName string) (*models.ReportFeature, error) {
	return s.featureRepo.GetFeatureByName(ctx, featureName)
}

func (s *FeatureService) ListFeatures(ctx context.Context, includeInactive bool) ([]models.ReportFeature, error) {
	return s.featureRepo.ListFeatures(ctx, includeInactive)
}

func (s *FeatureService) UpdateFeature(ctx context.Context, id uuid.UUID, req models.UpdateFeatureRequest) (*models.ReportFeature, error) {
	features, err := s.featureRepo.ListFeatures(ctx, true)
	if err != nil {
		return nil, err
	}

	var feature *models.ReportFeature
	for i := range features {
		if features[i].ID == id {
			feature = &features[i]
			break
		}
	}
	if feature == nil {
		return nil, fmt.Errorf("report feature not found: %s", id)
	}

	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("feature price cannot be negative")
		}
		feature.Price = *req.Price
	}
	if req.Currency != nil {
		feature.Currency = *req.Currency
	}
	if req.DurationDays != nil {
		feature.DurationDays = req.DurationDays
	}
	if req.IsActive != nil {
		feature.IsActive = *req.IsActive
	}

	if err := s.featureRepo.UpdateFeature(ctx, feature); err != nil {
		return nil, err
	}
	return feature, nil
}

func (s *FeatureService) DeactivateFeature(ctx context.Context, id uuid.UUID) error {
	return s.featureRepo.DeactivateFeature(ctx, id)
}
