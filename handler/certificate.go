package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"certhub/config"
	"certhub/dep"
	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/httputil"
	"certhub/pkg/validator"
	"certhub/render"
	"certhub/repo"

	"github.com/rs/zerolog/log"
)

const fontCachePrefix = "font"

var (
	ErrCertificateNotReady  = errors.New("campaign is not ready to issue certificates")
	ErrCertificateUnclaimed = errors.New("certificate has not been claimed")
)

type CertificateHandler interface {
	ClaimCertificate(ctx context.Context, req *ClaimCertificateRequest, res *ClaimCertificateResponse) error
	DownloadCertificate(w http.ResponseWriter, r *http.Request)
}

type certificateHandler struct {
	campaignRepo   repo.CampaignRepo
	recipientRepo  repo.RecipientRepo
	typographyRepo repo.TypographyRepo
	fileRepo       repo.FileRepo
	baseCache      repo.BaseCache
	fetcher        dep.Fetcher
	compositor     render.Compositor
}

func NewCertificateHandler(
	campaignRepo repo.CampaignRepo,
	recipientRepo repo.RecipientRepo,
	typographyRepo repo.TypographyRepo,
	fileRepo repo.FileRepo,
	baseCache repo.BaseCache,
	fetcher dep.Fetcher,
	compositor render.Compositor,
) CertificateHandler {
	return &certificateHandler{
		campaignRepo,
		recipientRepo,
		typographyRepo,
		fileRepo,
		baseCache,
		fetcher,
		compositor,
	}
}

type ClaimCertificateRequest struct {
	UniqueCode *string `json:"unique_code,omitempty" schema:"unique_code"`
}

func (r *ClaimCertificateRequest) GetUniqueCode() string {
	if r != nil && r.UniqueCode != nil {
		return *r.UniqueCode
	}
	return ""
}

type ClaimCertificateResponse struct {
	RecipientName  *string `json:"recipient_name"`
	CampaignName   *string `json:"campaign_name"`
	CertificateURL *string `json:"certificate_url"`
}

var ClaimCertificateValidator = validator.MustForm(map[string]validator.Validator{
	"unique_code": &validator.String{
		MinLen: entity.UniqueCodeLen,
		MaxLen: entity.UniqueCodeLen + 2, // allow surrounding whitespace
		Regex:  regexp.MustCompile(`^\s*[0-9a-fA-F]+\s*$`),
	},
})

// ClaimCertificate resolves a claim code to a rendered certificate. The first
// successful claim renders and stores the PNG, every later claim for the same
// code returns the stored copy. Concurrent first claims race on a conditional
// write, the loser discards its render and serves the winner's.
func (h *certificateHandler) ClaimCertificate(ctx context.Context, req *ClaimCertificateRequest, res *ClaimCertificateResponse) error {
	if err := ClaimCertificateValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	code := entity.NormalizeUniqueCode(req.GetUniqueCode())

	recipient, err := h.recipientRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	campaign, err := h.campaignRepo.GetByID(ctx, recipient.GetCampaignID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign err: %v, campaignID: %v", err, recipient.GetCampaignID())
		return err
	}

	if recipient.IsClaimed() {
		h.setClaimResponse(res, campaign, recipient, recipient.GetCertificateURL())
		return nil
	}

	certificateURL, err := h.renderAndPersist(ctx, campaign, recipient)
	if err != nil {
		return err
	}

	h.setClaimResponse(res, campaign, recipient, certificateURL)

	return nil
}

func (h *certificateHandler) setClaimResponse(res *ClaimCertificateResponse,
	campaign *entity.Campaign, recipient *entity.Recipient, certificateURL string) {
	res.RecipientName = recipient.Name
	res.CampaignName = campaign.Name
	res.CertificateURL = &certificateURL
}

func (h *certificateHandler) renderAndPersist(ctx context.Context,
	campaign *entity.Campaign, recipient *entity.Recipient) (string, error) {
	if campaign.GetTemplateImageURL() == "" {
		return "", errutil.PreconditionFailedError(ErrCertificateNotReady)
	}

	campaignConfig := campaign.GetConfig()
	if err := campaignConfig.Validate(); err != nil {
		log.Ctx(ctx).Error().Msgf("campaign config invalid: %v, campaignID: %v", err, campaign.GetID())
		return "", errutil.PreconditionFailedError(ErrCertificateNotReady)
	}

	typography, err := h.typographyRepo.GetByID(ctx, campaignConfig.GetTypographyID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get typography err: %v, typographyID: %v", err, campaignConfig.GetTypographyID())
		return "", errutil.PreconditionFailedError(ErrCertificateNotReady)
	}

	template, err := h.fetcher.Get(ctx, campaign.GetTemplateImageURL())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("fetch template err: %v, campaignID: %v", err, campaign.GetID())
		return "", errutil.InternalError(err)
	}

	fontBytes, err := h.getFont(ctx, typography)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("fetch font err: %v, typographyID: %v", err, typography.GetID())
		return "", errutil.InternalError(err)
	}

	certificate, err := h.compositor.Compose(&render.Input{
		Template:      template,
		Font:          fontBytes,
		RecipientName: recipient.GetName(),
		UniqueCode:    recipient.GetUniqueCode(),
		Config:        campaignConfig,
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("compose certificate err: %v, recipientID: %v", err, recipient.GetID())
		return "", errutil.InternalError(err)
	}

	fileName := fmt.Sprintf("certificate_%d_%d.png", recipient.GetID(), time.Now().Unix())
	certificateURL, err := h.fileRepo.Upload(ctx, config.FolderCertificates, fileName, certificate)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("upload certificate err: %v, recipientID: %v", err, recipient.GetID())
		return "", err
	}

	won, err := h.recipientRepo.SetCertificateURL(ctx, recipient.GetID(), certificateURL)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("set certificate url err: %v, recipientID: %v", err, recipient.GetID())
		return "", err
	}

	if !won {
		// another claim got there first, serve its certificate
		winner, err := h.recipientRepo.GetByCode(ctx, recipient.GetUniqueCode())
		if err != nil {
			return "", err
		}
		return winner.GetCertificateURL(), nil
	}

	return certificateURL, nil
}

func (h *certificateHandler) getFont(ctx context.Context, typography *entity.Typography) ([]byte, error) {
	if v, ok := h.baseCache.Get(ctx, fontCachePrefix, typography.GetID()); ok {
		return v.([]byte), nil
	}

	b, err := h.fetcher.Get(ctx, typography.GetFontFileURL())
	if err != nil {
		return nil, err
	}

	h.baseCache.Set(ctx, fontCachePrefix, typography.GetID(), b)

	return b, nil
}

// DownloadCertificate streams a claimed certificate as PNG. It bypasses the
// JSON envelope, so it is registered as a raw route.
func (h *certificateHandler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := entity.NormalizeUniqueCode(r.URL.Query().Get("unique_code"))
	if code == "" {
		httputil.ReturnServerResponse(w, nil, errutil.ValidationError(errors.New("unique_code is required")))
		return
	}

	recipient, err := h.recipientRepo.GetByCode(ctx, code)
	if err != nil {
		httputil.ReturnServerResponse(w, nil, err)
		return
	}

	if !recipient.IsClaimed() {
		httputil.ReturnServerResponse(w, nil, errutil.PreconditionFailedError(ErrCertificateUnclaimed))
		return
	}

	b, err := h.fetcher.Get(ctx, recipient.GetCertificateURL())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("fetch certificate err: %v, recipientID: %v", err, recipient.GetID())
		httputil.ReturnServerResponse(w, nil, errutil.InternalError(err))
		return
	}

	httputil.ReturnImageResponse(w, "image/png", b)
}
