package repo

import (
	"context"
	"errors"

	"certhub/entity"
	"certhub/pkg/errutil"

	"gorm.io/gorm"
)

var ErrUserNotFound = errutil.NotFoundError(errors.New("user not found"))

type User struct {
	ID         *uint64
	Email      *string
	Password   *string
	PlanID     *uint64
	Status     *uint32
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *User) TableName() string {
	return "user_tab"
}

func (m *User) GetStatus() uint32 {
	if m != nil && m.Status != nil {
		return *m.Status
	}
	return 0
}

type UserRepo interface {
	GetByID(ctx context.Context, userID uint64) (*entity.User, error)
}

type userRepo struct {
	baseRepo BaseRepo
}

func NewUserRepo(_ context.Context, baseRepo BaseRepo) UserRepo {
	return &userRepo{
		baseRepo: baseRepo,
	}
}

func (r *userRepo) GetByID(ctx context.Context, userID uint64) (*entity.User, error) {
	userModel := new(User)
	if err := r.baseRepo.Get(ctx, userModel, &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         userID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "status",
				Value: uint32(entity.UserStatusNormal),
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return ToUser(userModel), nil
}

func ToUser(userModel *User) *entity.User {
	return &entity.User{
		ID:         userModel.ID,
		Email:      userModel.Email,
		Password:   userModel.Password,
		PlanID:     userModel.PlanID,
		Status:     entity.UserStatus(userModel.GetStatus()),
		CreateTime: userModel.CreateTime,
		UpdateTime: userModel.UpdateTime,
	}
}
