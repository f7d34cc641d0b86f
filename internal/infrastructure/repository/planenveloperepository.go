package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// PlanEnvelopeRepositoryImpl stores decision-bearing plan envelopes.
type PlanEnvelopeRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPlanEnvelopeRepository(gdb *gorm.DB, logger logger.Interface) *PlanEnvelopeRepositoryImpl {
	return &PlanEnvelopeRepositoryImpl{db: gdb, logger: logger}
}

func (r *PlanEnvelopeRepositoryImpl) Create(ctx context.Context, p *models.PlanModel) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *PlanEnvelopeRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.PlanModel, error) {
	var p models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

// FindActiveByDiaryNumber returns the oldest active plan carrying diary, or
// nil when there is none.
func (r *PlanEnvelopeRepositoryImpl) FindActiveByDiaryNumber(ctx context.Context, diary string) (*models.PlanModel, error) {
	var p models.PlanModel
	err := db.GetTxFromContext(ctx, r.db).
		Scopes(db.Active()).
		Where("diary_number = ?", diary).
		Order("created_at").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to find plan by diary number", "diary_number", diary, "error", err)
		return nil, fmt.Errorf("failed to find plan by diary number: %w", err)
	}
	return &p, nil
}

// UpdateFields applies fields to the plan with id in one statement.
func (r *PlanEnvelopeRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		r.logger.Errorw("failed to update plan", "plan_id", id, "error", res.Error)
		return fmt.Errorf("failed to update plan: %w", res.Error)
	}
	return nil
}
