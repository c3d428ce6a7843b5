package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"certhub/config"
	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/router"
	"certhub/pkg/validator"
	"certhub/repo"

	"github.com/rs/zerolog/log"
)

type TypographyHandler interface {
	CreateTypography(ctx context.Context, req *CreateTypographyRequest, res *CreateTypographyResponse) error
	GetTypographies(ctx context.Context, req *GetTypographiesRequest, res *GetTypographiesResponse) error
}

type typographyHandler struct {
	typographyRepo repo.TypographyRepo
	fileRepo       repo.FileRepo
}

func NewTypographyHandler(typographyRepo repo.TypographyRepo, fileRepo repo.FileRepo) TypographyHandler {
	return &typographyHandler{
		typographyRepo,
		fileRepo,
	}
}

type CreateTypographyRequest struct {
	FileMeta *router.FileMeta `schema:"-"`
	Name     *string          `schema:"name"`
}

func (r *CreateTypographyRequest) GetName() string {
	if r != nil && r.Name != nil {
		return *r.Name
	}
	return ""
}

type CreateTypographyResponse struct {
	Typography *entity.Typography `json:"typography"`
}

var CreateTypographyValidator = validator.MustForm(map[string]validator.Validator{
	"name":     ResourceNameValidator(false),
	"FileMeta": FileInfoValidator(false, 5<<20, []string{"font/ttf", "font/otf", "application/octet-stream"}),
})

func (h *typographyHandler) CreateTypography(ctx context.Context, req *CreateTypographyRequest, res *CreateTypographyResponse) error {
	if err := CreateTypographyValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if _, err := getUser(ctx); err != nil {
		return err
	}

	b, err := io.ReadAll(req.FileMeta.File)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("read font file err: %v", err)
		return errutil.BadRequestError(err)
	}

	fileName := fmt.Sprintf("font_%d_%s", time.Now().Unix(), req.FileMeta.FileHeader.Filename)
	fileURL, err := h.fileRepo.Upload(ctx, config.FolderFonts, fileName, b)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("upload font err: %v", err)
		return err
	}

	typography := entity.NewTypography(req.GetName(), fileURL)
	if _, err := h.typographyRepo.Create(ctx, typography); err != nil {
		log.Ctx(ctx).Error().Msgf("create typography err: %v", err)
		return err
	}

	res.Typography = typography

	return nil
}

type GetTypographiesRequest struct {
	Pagination *repo.Pagination `json:"pagination,omitempty"`
}

type GetTypographiesResponse struct {
	Typographies []*entity.Typography `json:"typographies"`
	Pagination   *repo.Pagination     `json:"pagination,omitempty"`
}

func (h *typographyHandler) GetTypographies(ctx context.Context, req *GetTypographiesRequest, res *GetTypographiesResponse) error {
	typographies, pagination, err := h.typographyRepo.GetMany(ctx, req.Pagination)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get typographies err: %v", err)
		return err
	}

	res.Typographies = typographies
	res.Pagination = pagination

	return nil
}
