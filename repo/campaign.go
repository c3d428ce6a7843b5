package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"

	"gorm.io/gorm"
)

var ErrCampaignNotFound = errutil.NotFoundError(errors.New("campaign not found"))

type Campaign struct {
	ID                *uint64
	UserID            *uint64
	Name              *string
	Status            *uint32
	TemplateImageURL  *string
	RecipientsFileURL *string
	Config            *string
	Email             *string
	CreateTime        *uint64
	UpdateTime        *uint64
}

func (m *Campaign) TableName() string {
	return "campaign_tab"
}

func (m *Campaign) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

func (m *Campaign) GetStatus() uint32 {
	if m != nil && m.Status != nil {
		return *m.Status
	}
	return 0
}

type CampaignRepo interface {
	Create(ctx context.Context, campaign *entity.Campaign) (uint64, error)
	// GetByID loads the campaign together with its recipient list.
	GetByID(ctx context.Context, campaignID uint64) (*entity.Campaign, error)
	GetByIDAndUserID(ctx context.Context, userID, campaignID uint64) (*entity.Campaign, error)
	GetManyByUserID(ctx context.Context, userID uint64, p *Pagination) ([]*entity.Campaign, *Pagination, error)
	GetManyByStatus(ctx context.Context, status entity.CampaignStatus) ([]*entity.Campaign, error)
	CountByUserID(ctx context.Context, userID uint64) (uint64, error)
	Update(ctx context.Context, campaign *entity.Campaign) error
	// UpdateStatus flips the status only when the stored status still matches
	// from; reports whether this call won the flip.
	UpdateStatus(ctx context.Context, campaignID uint64, from, to entity.CampaignStatus) (bool, error)
	// ReplaceRecipients swaps the whole recipient list and the archived source
	// file reference in one transaction. A prior list is never left half
	// replaced.
	ReplaceRecipients(ctx context.Context, campaign *entity.Campaign, recipients []*entity.Recipient) error
	Delete(ctx context.Context, campaign *entity.Campaign) error
}

type campaignRepo struct {
	baseRepo BaseRepo
}

func NewCampaignRepo(_ context.Context, baseRepo BaseRepo) CampaignRepo {
	return &campaignRepo{
		baseRepo: baseRepo,
	}
}

func (r *campaignRepo) Create(ctx context.Context, campaign *entity.Campaign) (uint64, error) {
	campaignModel, err := ToCampaignModel(campaign)
	if err != nil {
		return 0, err
	}

	if err := r.baseRepo.Create(ctx, campaignModel); err != nil {
		return 0, err
	}

	campaign.ID = campaignModel.ID

	return campaignModel.GetID(), nil
}

func (r *campaignRepo) GetByID(ctx context.Context, campaignID uint64) (*entity.Campaign, error) {
	return r.get(ctx, []*Condition{
		{
			Field: "id",
			Value: campaignID,
			Op:    OpEq,
		},
	})
}

func (r *campaignRepo) GetByIDAndUserID(ctx context.Context, userID, campaignID uint64) (*entity.Campaign, error) {
	return r.get(ctx, []*Condition{
		{
			Field:         "id",
			Value:         campaignID,
			Op:            OpEq,
			NextLogicalOp: LogicalOpAnd,
		},
		{
			Field: "user_id",
			Value: userID,
			Op:    OpEq,
		},
	})
}

func (r *campaignRepo) get(ctx context.Context, conditions []*Condition) (*entity.Campaign, error) {
	campaignModel := new(Campaign)
	if err := r.baseRepo.Get(ctx, campaignModel, &Filter{
		Conditions: conditions,
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	campaign, err := ToCampaign(campaignModel)
	if err != nil {
		return nil, err
	}

	recipients, err := r.getRecipients(ctx, campaign.GetID())
	if err != nil {
		return nil, err
	}
	campaign.Recipients = recipients

	return campaign, nil
}

func (r *campaignRepo) getRecipients(ctx context.Context, campaignID uint64) ([]*entity.Recipient, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(Recipient), &Filter{
		Conditions: []*Condition{
			{
				Field: "campaign_id",
				Value: campaignID,
				Op:    OpEq,
			},
		},
		Pagination: &Pagination{
			Limit: goutil.Uint32(0), // no limit, keep ingestion order
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

func (r *campaignRepo) GetManyByUserID(ctx context.Context, userID uint64, p *Pagination) ([]*entity.Campaign, *Pagination, error) {
	res, pNew, err := r.baseRepo.GetMany(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field: "user_id",
				Value: userID,
				Op:    OpEq,
			},
		},
		Pagination: p,
	})
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]*entity.Campaign, 0, len(res))
	for _, m := range res {
		campaign, err := ToCampaign(m.(*Campaign))
		if err != nil {
			return nil, nil, err
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, pNew, nil
}

func (r *campaignRepo) GetManyByStatus(ctx context.Context, status entity.CampaignStatus) ([]*entity.Campaign, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field: "status",
				Value: uint32(status),
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

	campaigns := make([]*entity.Campaign, 0, len(res))
	for _, m := range res {
		campaign, err := ToCampaign(m.(*Campaign))
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, nil
}

func (r *campaignRepo) CountByUserID(ctx context.Context, userID uint64) (uint64, error) {
	return r.baseRepo.Count(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field: "user_id",
				Value: userID,
				Op:    OpEq,
			},
		},
	})
}

func (r *campaignRepo) Update(ctx context.Context, campaign *entity.Campaign) error {
	campaignModel, err := ToCampaignModel(campaign)
	if err != nil {
		return err
	}

	return r.baseRepo.Update(ctx, campaignModel)
}

func (r *campaignRepo) UpdateStatus(ctx context.Context, campaignID uint64, from, to entity.CampaignStatus) (bool, error) {
	rows, err := r.baseRepo.UpdateWhere(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         campaignID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "status",
				Value: uint32(from),
				Op:    OpEq,
			},
		},
	}, map[string]interface{}{
		"status":      uint32(to),
		"update_time": uint64(time.Now().Unix()),
	})
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *campaignRepo) ReplaceRecipients(ctx context.Context, campaign *entity.Campaign, recipients []*entity.Recipient) error {
	return r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		if err := r.baseRepo.Delete(ctx, new(Recipient), &Filter{
			Conditions: []*Condition{
				{
					Field: "campaign_id",
					Value: campaign.GetID(),
					Op:    OpEq,
				},
			},
		}); err != nil {
			return err
		}

		if len(recipients) > 0 {
			recipientModels := make([]*Recipient, 0, len(recipients))
			for _, recipient := range recipients {
				recipient.CampaignID = goutil.Uint64(campaign.GetID())
				recipientModels = append(recipientModels, ToRecipientModel(recipient))
			}

			if err := r.baseRepo.CreateMany(ctx, new(Recipient), recipientModels); err != nil {
				return err
			}

			for i, recipientModel := range recipientModels {
				recipients[i].ID = recipientModel.ID
			}
		}

		campaignModel, err := ToCampaignModel(campaign)
		if err != nil {
			return err
		}

		if err := r.baseRepo.Update(ctx, campaignModel); err != nil {
			return err
		}

		campaign.Recipients = recipients

		return nil
	})
}

func (r *campaignRepo) Delete(ctx context.Context, campaign *entity.Campaign) error {
	return r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		if err := r.baseRepo.Delete(ctx, new(Recipient), &Filter{
			Conditions: []*Condition{
				{
					Field: "campaign_id",
					Value: campaign.GetID(),
					Op:    OpEq,
				},
			},
		}); err != nil {
			return err
		}

		return r.baseRepo.Delete(ctx, new(Campaign), &Filter{
			Conditions: []*Condition{
				{
					Field: "id",
					Value: campaign.GetID(),
					Op:    OpEq,
				},
			},
		})
	})
}

func ToCampaignModel(campaign *entity.Campaign) (*Campaign, error) {
	var configStr *string
	if campaign.Config != nil {
		b, err := json.Marshal(campaign.Config)
		if err != nil {
			return nil, err
		}
		configStr = goutil.String(string(b))
	}

	var emailStr *string
	if campaign.Email != nil {
		b, err := json.Marshal(campaign.Email)
		if err != nil {
			return nil, err
		}
		emailStr = goutil.String(string(b))
	}

	return &Campaign{
		ID:                campaign.ID,
		UserID:            campaign.UserID,
		Name:              campaign.Name,
		Status:            goutil.Uint32(uint32(campaign.GetStatus())),
		TemplateImageURL:  campaign.TemplateImageURL,
		RecipientsFileURL: campaign.RecipientsFileURL,
		Config:            configStr,
		Email:             emailStr,
		CreateTime:        campaign.CreateTime,
		UpdateTime:        campaign.UpdateTime,
	}, nil
}

func ToCampaign(campaignModel *Campaign) (*entity.Campaign, error) {
	var campaignConfig *entity.CampaignConfig
	if campaignModel.Config != nil && *campaignModel.Config != "" {
		campaignConfig = new(entity.CampaignConfig)
		if err := json.Unmarshal([]byte(*campaignModel.Config), campaignConfig); err != nil {
			return nil, err
		}
	}

	var emailSettings *entity.EmailSettings
	if campaignModel.Email != nil && *campaignModel.Email != "" {
		emailSettings = new(entity.EmailSettings)
		if err := json.Unmarshal([]byte(*campaignModel.Email), emailSettings); err != nil {
			return nil, err
		}
	}

	return &entity.Campaign{
		ID:                campaignModel.ID,
		UserID:            campaignModel.UserID,
		Name:              campaignModel.Name,
		Status:            entity.CampaignStatus(campaignModel.GetStatus()),
		TemplateImageURL:  campaignModel.TemplateImageURL,
		RecipientsFileURL: campaignModel.RecipientsFileURL,
		Config:            campaignConfig,
		Email:             emailSettings,
		CreateTime:        campaignModel.CreateTime,
		UpdateTime:        campaignModel.UpdateTime,
	}, nil
}
