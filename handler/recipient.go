package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"certhub/config"
	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"
	"certhub/pkg/router"
	"certhub/pkg/validator"

	"github.com/rs/zerolog/log"
)

var (
	ErrMissingNameColumn  = errors.New("recipient file has no name column")
	ErrMissingEmailColumn = errors.New("recipient file has no email column")
	ErrNoValidRecipients  = errors.New("recipient file has no valid rows")
)

type UploadRecipientsRequest struct {
	FileMeta   *router.FileMeta `schema:"-"`
	CampaignID *uint64          `schema:"campaign_id"`
}

type UploadRecipientsResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var UploadRecipientsValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
	"FileMeta":    FileInfoValidator(false, 10<<20, []string{"text/csv", "application/vnd.ms-excel", "application/octet-stream"}),
})

func (h *campaignHandler) UploadRecipients(ctx context.Context, req *UploadRecipientsRequest, res *UploadRecipientsResponse) error {
	if err := UploadRecipientsValidator.Validate(req); err != nil {
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

	b, err := io.ReadAll(req.FileMeta.File)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("read recipient file err: %v", err)
		return errutil.BadRequestError(err)
	}

	rows, err := parseRecipientRows(b)
	if err != nil {
		return errutil.ValidationError(err)
	}

	plan, err := h.planRepo.GetByID(ctx, user.GetPlanID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get plan err: %v, planID: %v", err, user.GetPlanID())
		return err
	}

	if !plan.CanIngestRecipients(uint64(len(rows))) {
		return errutil.QuotaExceededError("recipients", uint64(len(rows)), plan.GetMaxRecipientsPerCampaign())
	}

	recipients, err := buildRecipients(rows)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("build recipients err: %v", err)
		return err
	}

	fileName := fmt.Sprintf("campaign_%d_%d_%s", campaign.GetID(), time.Now().Unix(), req.FileMeta.FileHeader.Filename)
	fileURL, err := h.fileRepo.Upload(ctx, config.FolderRecipientFiles, fileName, b)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("upload recipient file err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}

	campaign.RecipientsFileURL = goutil.String(fileURL)
	campaign.Recipients = recipients
	campaign.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))
	campaign.MarkReadyIfEligible()

	if err := h.campaignRepo.ReplaceRecipients(ctx, campaign, recipients); err != nil {
		log.Ctx(ctx).Error().Msgf("replace recipients err: %v, campaignID: %v", err, campaign.GetID())
		return err
	}

	res.Campaign = campaign

	return nil
}

type recipientRow struct {
	name  string
	email string
}

// parseRecipientRows reads a CSV with a header. Column order does not matter,
// only a name and an email column are required. Rows missing either value are
// dropped.
func parseRecipientRows(b []byte) ([]*recipientRow, error) {
	reader := csv.NewReader(bytes.NewReader(b))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %v", err)
	}

	nameIdx, emailIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name":
			nameIdx = i
		case "email":
			emailIdx = i
		}
	}
	if nameIdx == -1 {
		return nil, ErrMissingNameColumn
	}
	if emailIdx == -1 {
		return nil, ErrMissingEmailColumn
	}

	var rows []*recipientRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %v", err)
		}

		if nameIdx >= len(record) || emailIdx >= len(record) {
			continue
		}

		var (
			name  = strings.TrimSpace(record[nameIdx])
			email = strings.TrimSpace(record[emailIdx])
		)
		if name == "" || email == "" {
			continue
		}

		rows = append(rows, &recipientRow{
			name:  name,
			email: email,
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoValidRecipients
	}

	return rows, nil
}

// buildRecipients assigns each row a claim code, unique within the batch. The
// store's unique index backstops collisions across campaigns.
func buildRecipients(rows []*recipientRow) ([]*entity.Recipient, error) {
	var (
		recipients = make([]*entity.Recipient, 0, len(rows))
		seen       = make(map[string]struct{}, len(rows))
	)
	for _, row := range rows {
		var code string
		for {
			c, err := entity.NewUniqueCode()
			if err != nil {
				return nil, err
			}
			if _, ok := seen[c]; !ok {
				code = c
				break
			}
		}
		seen[code] = struct{}{}

		recipients = append(recipients, entity.NewRecipient(row.name, row.email, code))
	}

	return recipients, nil
}
