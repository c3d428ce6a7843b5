package repo

import (
	"context"
	"errors"

	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"

	"gorm.io/gorm"
)

var ErrTypographyNotFound = errutil.NotFoundError(errors.New("typography not found"))

type Typography struct {
	ID          *uint64
	Name        *string
	FontFileURL *string
	CreateTime  *uint64
	UpdateTime  *uint64
}

func (m *Typography) TableName() string {
	return "typography_tab"
}

func (m *Typography) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type TypographyRepo interface {
	Create(ctx context.Context, typography *entity.Typography) (uint64, error)
	GetByID(ctx context.Context, typographyID uint64) (*entity.Typography, error)
	GetByName(ctx context.Context, name string) (*entity.Typography, error)
	// GetDefault returns the oldest typography, used when a campaign does not
	// pick one.
	GetDefault(ctx context.Context) (*entity.Typography, error)
	GetMany(ctx context.Context, p *Pagination) ([]*entity.Typography, *Pagination, error)
}

type typographyRepo struct {
	baseRepo BaseRepo
}

func NewTypographyRepo(_ context.Context, baseRepo BaseRepo) TypographyRepo {
	return &typographyRepo{
		baseRepo: baseRepo,
	}
}

func (r *typographyRepo) Create(ctx context.Context, typography *entity.Typography) (uint64, error) {
	typographyModel := ToTypographyModel(typography)

	if err := r.baseRepo.Create(ctx, typographyModel); err != nil {
		return 0, err
	}

	typography.ID = typographyModel.ID

	return typographyModel.GetID(), nil
}

func (r *typographyRepo) GetByID(ctx context.Context, typographyID uint64) (*entity.Typography, error) {
	return r.get(ctx, []*Condition{
		{
			Field: "id",
			Value: typographyID,
			Op:    OpEq,
		},
	})
}

func (r *typographyRepo) GetByName(ctx context.Context, name string) (*entity.Typography, error) {
	return r.get(ctx, []*Condition{
		{
			Field: "name",
			Value: name,
			Op:    OpEq,
		},
	})
}

func (r *typographyRepo) GetDefault(ctx context.Context) (*entity.Typography, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(Typography), &Filter{
		Pagination: &Pagination{
			Page:  goutil.Uint32(1),
			Limit: goutil.Uint32(1),
		},
		Order: "id ASC",
	})
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, ErrTypographyNotFound
	}

	return ToTypography(res[0].(*Typography)), nil
}

func (r *typographyRepo) get(ctx context.Context, conditions []*Condition) (*entity.Typography, error) {
	typographyModel := new(Typography)
	if err := r.baseRepo.Get(ctx, typographyModel, &Filter{
		Conditions: conditions,
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTypographyNotFound
		}
		return nil, err
	}

	return ToTypography(typographyModel), nil
}

func (r *typographyRepo) GetMany(ctx context.Context, p *Pagination) ([]*entity.Typography, *Pagination, error) {
	res, pNew, err := r.baseRepo.GetMany(ctx, new(Typography), &Filter{
		Pagination: p,
		Order:      "name ASC",
	})
	if err != nil {
		return nil, nil, err
	}

	typographies := make([]*entity.Typography, 0, len(res))
	for _, m := range res {
		typographies = append(typographies, ToTypography(m.(*Typography)))
	}

	return typographies, pNew, nil
}

func ToTypographyModel(typography *entity.Typography) *Typography {
	return &Typography{
		ID:          typography.ID,
		Name:        typography.Name,
		FontFileURL: typography.FontFileURL,
		CreateTime:  typography.CreateTime,
		UpdateTime:  typography.UpdateTime,
	}
}

func ToTypography(typographyModel *Typography) *entity.Typography {
	return &entity.Typography{
		ID:          typographyModel.ID,
		Name:        typographyModel.Name,
		FontFileURL: typographyModel.FontFileURL,
		CreateTime:  typographyModel.CreateTime,
		UpdateTime:  typographyModel.UpdateTime,
	}
}
