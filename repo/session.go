package repo

import (
	"context"
	"errors"
	"time"

	"certhub/entity"
	"certhub/pkg/errutil"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errutil.UnauthorizedError(errors.New("session not found"))

type Session struct {
	ID         *uint64
	UserID     *uint64
	TokenHash  *string
	ExpireTime *uint64
	CreateTime *uint64
}

func (m *Session) TableName() string {
	return "session_tab"
}

type SessionRepo interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)
}

type sessionRepo struct {
	baseRepo BaseRepo
}

func NewSessionRepo(_ context.Context, baseRepo BaseRepo) SessionRepo {
	return &sessionRepo{
		baseRepo: baseRepo,
	}
}

func (r *sessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	sessionModel := new(Session)
	if err := r.baseRepo.Get(ctx, sessionModel, &Filter{
		Conditions: []*Condition{
			{
				Field:         "token_hash",
				Value:         tokenHash,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "expire_time",
				Value: uint64(time.Now().Unix()),
				Op:    OpGt,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return ToSession(sessionModel), nil
}

func ToSession(sessionModel *Session) *entity.Session {
	return &entity.Session{
		ID:         sessionModel.ID,
		UserID:     sessionModel.UserID,
		TokenHash:  sessionModel.TokenHash,
		ExpireTime: sessionModel.ExpireTime,
		CreateTime: sessionModel.CreateTime,
	}
}
