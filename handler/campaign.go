package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"certhub/config"
	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"
	"certhub/pkg/router"
	"certhub/pkg/validator"
	"certhub/repo"

	"github.com/rs/zerolog/log"
)

type CampaignHandler interface {
	CreateCampaign(ctx context.Context, req *CreateCampaignRequest, res *CreateCampaignResponse) error
	GetCampaigns(ctx context.Context, req *GetCampaignsRequest, res *GetCampaignsResponse) error
	GetCampaign(ctx context.Context, req *GetCampaignRequest, res *GetCampaignResponse) error
	UpdateCampaign(ctx context.Context, req *UpdateCampaignRequest, res *UpdateCampaignResponse) error
	DeleteCampaign(ctx context.Context, req *DeleteCampaignRequest, res *DeleteCampaignResponse) error
	UploadTemplate(ctx context.Context, req *UploadTemplateRequest, res *UploadTemplateResponse) error
	UploadRecipients(ctx context.Context, req *UploadRecipientsRequest, res *UploadRecipientsResponse) error
	ActivateCampaign(ctx context.Context, req *ActivateCampaignRequest, res *ActivateCampaignResponse) error
}

type campaignHandler struct {
	campaignRepo   repo.CampaignRepo
	planRepo       repo.PlanRepo
	typographyRepo repo.TypographyRepo
	fileRepo       repo.FileRepo
	dispatcher     Dispatcher
}

func NewCampaignHandler(
	campaignRepo repo.CampaignRepo,
	planRepo repo.PlanRepo,
	typographyRepo repo.TypographyRepo,
	fileRepo repo.FileRepo,
	dispatcher Dispatcher,
) CampaignHandler {
	return &campaignHandler{
		campaignRepo,
		planRepo,
		typographyRepo,
		fileRepo,
		dispatcher,
	}
}

type CreateCampaignRequest struct {
	Name         *string `json:"name,omitempty"`
	EmailSubject *string `json:"email_subject,omitempty"`
	EmailBody    *string `json:"email_body,omitempty"`
}

func (r *CreateCampaignRequest) GetName() string {
	if r != nil && r.Name != nil {
		return *r.Name
	}
	return ""
}

type CreateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var CreateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"name": ResourceNameValidator(false),
	"email_subject": &validator.String{
		Optional:  true,
		UnsetZero: true,
		MaxLen:    200,
	},
	"email_body": &validator.String{
		Optional:  true,
		UnsetZero: true,
		MaxLen:    5000,
	},
})

func (h *campaignHandler) CreateCampaign(ctx context.Context, req *CreateCampaignRequest, res *CreateCampaignResponse) error {
	if err := CreateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	plan, err := h.planRepo.GetByID(ctx, user.GetPlanID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get plan err: %v, planID: %v", err, user.GetPlanID())
		return err
	}

	count, err := h.campaignRepo.CountByUserID(ctx, user.GetID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("count campaigns err: %v", err)
		return err
	}

	if !plan.CanCreateCampaign(count) {
		return errutil.QuotaExceededError("campaigns", count, plan.GetMaxCampaigns())
	}

	typography, err := h.typographyRepo.GetDefault(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get default typography err: %v", err)
		return err
	}

	campaign := entity.NewCampaign(user.GetID(), req.GetName(), typography.GetID())
	if req.EmailSubject != nil {
		campaign.Email.Subject = req.EmailSubject
	}
	if req.EmailBody != nil {
		campaign.Email.Body = req.EmailBody
	}

	if _, err := h.campaignRepo.Create(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("create campaign err: %v", err)
		return err
	}

	res.Campaign = campaign

	return nil
}

type GetCampaignsRequest struct {
	Pagination *repo.Pagination `json:"pagination,omitempty"`
}

type GetCampaignsResponse struct {
	Campaigns  []*entity.Campaign `json:"campaigns"`
	Pagination *repo.Pagination   `json:"pagination,omitempty"`
}

func (h *campaignHandler) GetCampaigns(ctx context.Context, req *GetCampaignsRequest, res *GetCampaignsResponse) error {
	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	campaigns, pagination, err := h.campaignRepo.GetManyByUserID(ctx, user.GetID(), req.Pagination)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaigns err: %v", err)
		return err
	}

	res.Campaigns = campaigns
	res.Pagination = pagination

	return nil
}

type GetCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty" schema:"campaign_id"`
}

type GetCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var GetCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) GetCampaign(ctx context.Context, req *GetCampaignRequest, res *GetCampaignResponse) error {
	if err := GetCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	campaign, err := h.campaignRepo.GetByIDAndUserID(ctx, user.GetID(), *req.CampaignID)
	if err != nil {
		return err
	}

	res.Campaign = campaign

	return nil
}

type UpdateCampaignRequest struct {
	CampaignID *uint64                `json:"campaign_id,omitempty"`
	Name       *string                `json:"name,omitempty"`
	Config     *entity.CampaignConfig `json:"config,omitempty"`
	Email      *entity.EmailSettings  `json:"email,omitempty"`
}

type UpdateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var UpdateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
	"name":        ResourceNameValidator(true),
})

func (h *campaignHandler) UpdateCampaign(ctx context.Context, req *UpdateCampaignRequest, res *UpdateCampaignResponse) error {
	if err := UpdateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	campaign, err := h.campaignRepo.GetByIDAndUserID(ctx, user.GetID(), *req.CampaignID)
	if err != nil {
		return err
	}

	if !campaign.IsEditable() {
		return errutil.ConflictError(entity.ErrCampaignLocked)
	}

	if req.Config != nil {
		if err := req.Config.Validate(); err != nil {
			return errutil.ValidationError(err)
		}
		if _, err := h.typographyRepo.GetByID(ctx, req.Config.GetTypographyID()); err != nil {
			return err
		}
	}

	hasChange := campaign.Update(&entity.Campaign{
		Name:   req.Name,
		Config: req.Config,
		Email:  req.Email,
	})
	if hasChange {
		if err := h.campaignRepo.Update(ctx, campaign); err != nil {
			log.Ctx(ctx).Error().Msgf("update campaign err: %v, campaignID: %v", err, campaign.GetID())
			return err
		}
	}

	res.Campaign = campaign

	return nil
}

type DeleteCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

type DeleteCampaignResponse struct{}

var DeleteCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) DeleteCampaign(ctx context.Context, req *DeleteCampaignRequest, res *DeleteCampaignResponse) error {
	if err := DeleteCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	campaign, err := h.campaignRepo.GetByIDAndUserID(ctx, user.GetID(), *req.CampaignID)
	if err != nil {
		return err
	}

	if !campaign.IsEditable() {
		return errutil.ConflictError(entity.ErrCampaignLocked)
	}

	if err := h.campaignRepo.Delete(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("delete campaign err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}

	return nil
}

type UploadTemplateRequest struct {
	FileMeta   *router.FileMeta `schema:"-"`
	CampaignID *uint64          `schema:"campaign_id"`
	Config     *string          `schema:"config"`
	Typography *string          `schema:"typography"`
}

type UploadTemplateResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var UploadTemplateValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
	"FileMeta":    FileInfoValidator(false, 10<<20, []string{"image/png", "image/jpeg", "image/gif", "image/webp"}),
	"config": &validator.String{
		Optional: true,
	},
	"typography": &validator.String{
		Optional:  true,
		UnsetZero: true,
	},
})

func (h *campaignHandler) UploadTemplate(ctx context.Context, req *UploadTemplateRequest, res *UploadTemplateResponse) error {
	if err := UploadTemplateValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	campaign, err := h.campaignRepo.GetByIDAndUserID(ctx, user.GetID(), *req.CampaignID)
	if err != nil {
		return err
	}

	if !campaign.IsEditable() {
		return errutil.ConflictError(entity.ErrCampaignLocked)
	}

	newConfig := campaign.GetConfig()
	if req.Config != nil && *req.Config != "" {
		newConfig = new(entity.CampaignConfig)
		if err := json.Unmarshal([]byte(*req.Config), newConfig); err != nil {
			return errutil.ValidationError(fmt.Errorf("malformed config: %v", err))
		}
	}

	if req.Typography != nil && *req.Typography != "" {
		typography, err := h.typographyRepo.GetByName(ctx, *req.Typography)
		if err != nil {
			return err
		}
		if newConfig == nil {
			newConfig = new(entity.CampaignConfig)
		}
		newConfig.TypographyID = goutil.Uint64(typography.GetID())
	}

	if err := newConfig.Validate(); err != nil {
		return errutil.ValidationError(err)
	}
	if _, err := h.typographyRepo.GetByID(ctx, newConfig.GetTypographyID()); err != nil {
		return err
	}

	b, err := io.ReadAll(req.FileMeta.File)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("read template file err: %v", err)
		return errutil.BadRequestError(err)
	}

	fileName := fmt.Sprintf("campaign_%d_%d_%s", campaign.GetID(), time.Now().Unix(), req.FileMeta.FileHeader.Filename)
	fileURL, err := h.fileRepo.Upload(ctx, config.FolderTemplates, fileName, b)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("upload template err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}

	campaign.Update(&entity.Campaign{
		TemplateImageURL: goutil.String(fileURL),
		Config:           newConfig,
	})
	campaign.MarkReadyIfEligible()

	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("update campaign err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}

	res.Campaign = campaign

	return nil
}

type ActivateCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

type ActivateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var ActivateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) ActivateCampaign(ctx context.Context, req *ActivateCampaignRequest, res *ActivateCampaignResponse) error {
	if err := ActivateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	user, err := getUser(ctx)
	if err != nil {
		return err
	}

	campaign, err := h.campaignRepo.GetByIDAndUserID(ctx, user.GetID(), *req.CampaignID)
	if err != nil {
		return err
	}

	from := campaign.GetStatus()
	if err := campaign.TransitionTo(entity.CampaignStatusSending); err != nil {
		if errors.Is(err, entity.ErrMissingTemplate) || errors.Is(err, entity.ErrMissingRecipients) {
			return errutil.PreconditionFailedError(err)
		}
		return errutil.ConflictError(err)
	}

	ok, err := h.campaignRepo.UpdateStatus(ctx, campaign.GetID(), from, entity.CampaignStatusSending)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("update campaign status err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}
	if !ok {
		return errutil.ConflictError(errors.New("campaign status has changed, please retry"))
	}

	if err := h.dispatcher.Dispatch(ctx, campaign.GetID()); err != nil {
		log.Ctx(ctx).Error().Msgf("dispatch campaign err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}

	res.Campaign = campaign

	return nil
}
