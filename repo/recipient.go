package repo

import (
	"context"
	"errors"
	"time"

	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"

	"gorm.io/gorm"
)

var ErrRecipientNotFound = errutil.NotFoundError(errors.New("recipient not found"))

type Recipient struct {
	ID             *uint64
	CampaignID     *uint64
	Name           *string
	Email          *string
	UniqueCode     *string
	EmailStatus    *uint32
	CertificateURL *string
	ClaimedAt      *uint64
	CreateTime     *uint64
	UpdateTime     *uint64
}

func (m *Recipient) TableName() string {
	return "recipient_tab"
}

func (m *Recipient) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

func (m *Recipient) GetEmailStatus() uint32 {
	if m != nil && m.EmailStatus != nil {
		return *m.EmailStatus
	}
	return 0
}

type RecipientRepo interface {
	GetByCode(ctx context.Context, uniqueCode string) (*entity.Recipient, error)
	GetManyByCampaignID(ctx context.Context, campaignID uint64) ([]*entity.Recipient, error)
	// SetCertificateURL persists the rendered certificate only when no URL has
	// been stored yet; reports whether this call won the write.
	SetCertificateURL(ctx context.Context, recipientID uint64, url string) (bool, error)
	// SetEmailStatus flips the email status only when the stored status still
	// matches from; reports whether this call won the flip.
	SetEmailStatus(ctx context.Context, recipientID uint64, from, to entity.EmailStatus) (bool, error)
}

type recipientRepo struct {
	baseRepo BaseRepo
}

func NewRecipientRepo(_ context.Context, baseRepo BaseRepo) RecipientRepo {
	return &recipientRepo{
		baseRepo: baseRepo,
	}
}

func (r *recipientRepo) GetByCode(ctx context.Context, uniqueCode string) (*entity.Recipient, error) {
	recipientModel := new(Recipient)
	if err := r.baseRepo.Get(ctx, recipientModel, &Filter{
		Conditions: []*Condition{
			{
				Field: "unique_code",
				Value: uniqueCode,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	return ToRecipient(recipientModel), nil
}

func (r *recipientRepo) GetManyByCampaignID(ctx context.Context, campaignID uint64) ([]*entity.Recipient, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(Recipient), &Filter{
		Conditions: []*Condition{
			{
				Field: "campaign_id",
				Value: campaignID,
				Op:    OpEq,
			},
		},
		Pagination: &Pagination{
			Limit: goutil.Uint32(0),
		},
		Order: "id ASC",
	})
	if err != nil {
		return nil, err
	}

	recipients := make([]*entity.Recipient, 0, len(res))
	for _, m := range res {
		recipients = append(recipients, ToRecipient(m.(*Recipient)))
	}

	return recipients, nil
}

func (r *recipientRepo) SetCertificateURL(ctx context.Context, recipientID uint64, url string) (bool, error) {
	now := uint64(time.Now().Unix())

	rows, err := r.baseRepo.UpdateWhere(ctx, new(Recipient), &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         recipientID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "certificate_url",
				Op:    OpIsNull,
			},
		},
	}, map[string]interface{}{
		"certificate_url": url,
		"claimed_at":      now,
		"update_time":     now,
	})
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *recipientRepo) SetEmailStatus(ctx context.Context, recipientID uint64, from, to entity.EmailStatus) (bool, error) {
	rows, err := r.baseRepo.UpdateWhere(ctx, new(Recipient), &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         recipientID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "email_status",
				Value: uint32(from),
				Op:    OpEq,
			},
		},
	}, map[string]interface{}{
		"email_status": uint32(to),
		"update_time":  uint64(time.Now().Unix()),
	})
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func ToRecipientModel(recipient *entity.Recipient) *Recipient {
	return &Recipient{
		ID:             recipient.ID,
		CampaignID:     recipient.CampaignID,
		Name:           recipient.Name,
		Email:          recipient.Email,
		UniqueCode:     recipient.UniqueCode,
		EmailStatus:    goutil.Uint32(uint32(recipient.GetEmailStatus())),
		CertificateURL: recipient.CertificateURL,
		ClaimedAt:      recipient.ClaimedAt,
		CreateTime:     recipient.CreateTime,
		UpdateTime:     recipient.UpdateTime,
	}
}

func ToRecipient(recipientModel *Recipient) *entity.Recipient {
	return &entity.Recipient{
		ID:             recipientModel.ID,
		CampaignID:     recipientModel.CampaignID,
		Name:           recipientModel.Name,
		Email:          recipientModel.Email,
		UniqueCode:     recipientModel.UniqueCode,
		EmailStatus:    entity.EmailStatus(recipientModel.GetEmailStatus()),
		CertificateURL: recipientModel.CertificateURL,
		ClaimedAt:      recipientModel.ClaimedAt,
		CreateTime:     recipientModel.CreateTime,
		UpdateTime:     recipientModel.UpdateTime,
	}
}
