package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"certhub/config"
	"certhub/dep"
	"certhub/entity"
	"certhub/repo"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var queue = make(chan uint64, 20)

var startDispatchOnce sync.Once

// Dispatcher walks a SENDING campaign's recipients one by one, emails each
// pending recipient its claim link, and records the outcome per recipient. A
// send failure never stops the run.
type Dispatcher interface {
	// Dispatch enqueues the campaign for background delivery.
	Dispatch(ctx context.Context, campaignID uint64) error
	// RunCampaign delivers synchronously. Safe to call again on a partially
	// delivered campaign, recipients already SENT or FAILED are skipped.
	RunCampaign(ctx context.Context, campaign *entity.Campaign) error
}

type dispatcher struct {
	campaignRepo  repo.CampaignRepo
	recipientRepo repo.RecipientRepo
	emailService  dep.EmailService
	claimPage     string
	sendInterval  time.Duration
}

func NewDispatcher(
	campaignRepo repo.CampaignRepo,
	recipientRepo repo.RecipientRepo,
	emailService dep.EmailService,
	webPages config.WebPages,
	dispatchCfg config.Dispatch,
) Dispatcher {
	d := &dispatcher{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		emailService:  emailService,
		claimPage:     webPages.ClaimPage,
		sendInterval:  time.Duration(dispatchCfg.SendIntervalMs) * time.Millisecond,
	}

	d.newDispatchProcessor()

	return d
}

func (d *dispatcher) newDispatchProcessor() {
	startDispatchOnce.Do(func() {
		go func() {
			for campaignID := range queue {
				var (
					logID = uuid.New()
					ctx   = log.With().Str("log_id", logID.String()).Logger().WithContext(context.Background())
				)

				campaign, err := d.campaignRepo.GetByID(ctx, campaignID)
				if err != nil {
					log.Ctx(ctx).Error().Msgf("get campaign err: %v, campaignID: %v", err, campaignID)
					continue
				}

				if err := d.RunCampaign(ctx, campaign); err != nil {
					log.Ctx(ctx).Error().Msgf("run campaign err: %v, campaignID: %v", err, campaignID)
				}
			}
		}()
	})
}

func (d *dispatcher) Dispatch(_ context.Context, campaignID uint64) error {
	queue <- campaignID
	return nil
}

func (d *dispatcher) RunCampaign(ctx context.Context, campaign *entity.Campaign) error {
	if campaign.GetStatus() != entity.CampaignStatusSending {
		log.Ctx(ctx).Info().Msgf("campaign is not sending, campaignID: %v, status: %v",
			campaign.GetID(), campaign.GetStatus())
		return nil
	}

	log.Ctx(ctx).Info().Msgf("dispatching campaign: %v, recipients: %v",
		campaign.GetID(), len(campaign.Recipients))

	for i, recipient := range campaign.Recipients {
		if !recipient.IsPending() {
			continue
		}

		if err := d.sendToRecipient(ctx, campaign, recipient); err != nil {
			log.Ctx(ctx).Error().Msgf("send to recipient err: %v, recipientID: %v", err, recipient.GetID())

			if _, err := d.recipientRepo.SetEmailStatus(ctx, recipient.GetID(),
				entity.EmailStatusPending, entity.EmailStatusFailed); err != nil {
				log.Ctx(ctx).Error().Msgf("set email status err: %v, recipientID: %v", err, recipient.GetID())
			}
		} else {
			if _, err := d.recipientRepo.SetEmailStatus(ctx, recipient.GetID(),
				entity.EmailStatusPending, entity.EmailStatusSent); err != nil {
				log.Ctx(ctx).Error().Msgf("set email status err: %v, recipientID: %v", err, recipient.GetID())
			}
		}

		// pace out sends, the email provider rate limits
		if i != len(campaign.Recipients)-1 {
			time.Sleep(d.sendInterval)
		}
	}

	return d.markCompleted(ctx, campaign)
}

func (d *dispatcher) sendToRecipient(ctx context.Context, campaign *entity.Campaign, recipient *entity.Recipient) error {
	return d.emailService.SendEmail(ctx, &dep.SendSmtpEmail{
		To: &dep.Receiver{
			Email: recipient.GetEmail(),
			Name:  recipient.GetName(),
		},
		Subject:     campaign.GetEmail().GetSubject(),
		HtmlContent: d.composeHtml(campaign, recipient),
		Tag:         fmt.Sprint(campaign.GetID()),
	})
}

// composeHtml appends the claim block to the authored body. The block is fixed,
// only the greeting and the claim link vary per recipient.
func (d *dispatcher) composeHtml(campaign *entity.Campaign, recipient *entity.Recipient) string {
	var (
		body     = strings.ReplaceAll(campaign.GetEmail().GetBody(), "\n", "<br>")
		claimURL = fmt.Sprintf("%s?unique_code=%s", d.claimPage, recipient.GetUniqueCode())
	)

	return fmt.Sprintf(`<html><body>`+
		`<p>Dear %s,</p>`+
		`<p>%s</p>`+
		`<p>Your unique code is <b>%s</b>.</p>`+
		`<p>Claim your certificate <a href="%s">here</a>.</p>`+
		`</body></html>`,
		recipient.GetName(), body, recipient.GetUniqueCode(), claimURL)
}

func (d *dispatcher) markCompleted(ctx context.Context, campaign *entity.Campaign) error {
	// re-read, a concurrent run may have raced on some recipients
	recipients, err := d.recipientRepo.GetManyByCampaignID(ctx, campaign.GetID())
	if err != nil {
		return err
	}

	for _, recipient := range recipients {
		if recipient.IsPending() {
			log.Ctx(ctx).Info().Msgf("campaign has pending recipients, campaignID: %v", campaign.GetID())
			return nil
		}
	}

	ok, err := d.campaignRepo.UpdateStatus(ctx, campaign.GetID(),
		entity.CampaignStatusSending, entity.CampaignStatusCompleted)
	if err != nil {
		return err
	}
	if ok {
		log.Ctx(ctx).Info().Msgf("campaign completed: %v", campaign.GetID())
	}

	return nil
}
