package repo

import (
	"context"
	"errors"

	"certhub/entity"
	"certhub/pkg/errutil"

	"gorm.io/gorm"
)

var ErrPlanNotFound = errutil.NotFoundError(errors.New("plan not found"))

const planCachePrefix = "plan"

type Plan struct {
	ID                       *uint64
	Name                     *string
	MaxCampaigns             *uint64
	MaxRecipientsPerCampaign *uint64
	CreateTime               *uint64
}

func (m *Plan) TableName() string {
	return "plan_tab"
}

type PlanRepo interface {
	GetByID(ctx context.Context, planID uint64) (*entity.Plan, error)
}

type planRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewPlanRepo(_ context.Context, baseRepo BaseRepo, baseCache BaseCache) PlanRepo {
	return &planRepo{
		baseRepo:  baseRepo,
		baseCache: baseCache,
	}
}

func (r *planRepo) GetByID(ctx context.Context, planID uint64) (*entity.Plan, error) {
	if v, ok := r.baseCache.Get(ctx, planCachePrefix, planID); ok {
		return v.(*entity.Plan), nil
	}

	planModel := new(Plan)
	if err := r.baseRepo.Get(ctx, planModel, &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: planID,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	plan := ToPlan(planModel)
	r.baseCache.Set(ctx, planCachePrefix, planID, plan)

	return plan, nil
}

func ToPlan(planModel *Plan) *entity.Plan {
	return &entity.Plan{
		ID:                       planModel.ID,
		Name:                     planModel.Name,
		MaxCampaigns:             planModel.MaxCampaigns,
		MaxRecipientsPerCampaign: planModel.MaxRecipientsPerCampaign,
		CreateTime:               planModel.CreateTime,
	}
}
