package policy

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/platform/apperr"
)

type Service struct {
	policies Repository
}

func NewService(policies Repository) *Service {
	return &Service{policies: policies}
}

// CreateInput is the admin catalog-entry payload.
type CreateInput struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Price            float64 `json:"price"`
	DurationMonths   int     `json:"duration_months"`
	InsuranceCompany string  `json:"insurance_company"`
	CoveredHospital  string  `json:"covered_hospital"`
	CoverageDetails  string  `json:"coverage_details"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Policy, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.InvalidInput("name is required")
	}
	if in.Price <= 0 {
		return nil, apperr.InvalidInput("price must be positive")
	}
	if in.DurationMonths < 1 {
		return nil, apperr.InvalidInput("duration_months must be at least 1")
	}

	p := &Policy{
		Name:           strings.TrimSpace(in.Name),
		Price:          in.Price,
		DurationMonths: in.DurationMonths,
		Status:         StatusActive,
	}
	if in.Description != "" {
		p.Description = &in.Description
	}
	if in.InsuranceCompany != "" {
		p.InsuranceCompany = &in.InsuranceCompany
	}
	if in.CoveredHospital != "" {
		p.CoveredHospital = &in.CoveredHospital
	}
	if in.CoverageDetails != "" {
		p.CoverageDetails = &in.CoverageDetails
	}

	if err := s.policies.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return s.policies.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Policy, int, error) {
	return s.policies.List(ctx, limit, offset)
}
