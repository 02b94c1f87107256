package usecase

import (
	"context"

	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
)

// PlanUseCase manages the subscription plan catalogue.
type PlanUseCase struct {
	repo repository.SubscriptionPlanRepository
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(repo repository.SubscriptionPlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Upsert validates and saves a plan under a stable id.
func (uc *PlanUseCase) Upsert(ctx context.Context, id, name string, durationDays int, price int64, active bool) (*model.SubscriptionPlan, error) {
	p, err := model.NewSubscriptionPlan(id, name, durationDays, price)
	if err != nil {
		return nil, err
	}
	p.Active = active
	if err := uc.repo.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the plans on sale.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return uc.repo.ListActive(ctx, repository.NoTX)
}
