package handler

import (
	"context"
	"errors"
	"testing"

	"certhub/config"
	"certhub/entity"
	"certhub/pkg/goutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchFixture struct {
	dispatcher    Dispatcher
	campaignRepo  *fakeCampaignRepo
	recipientRepo *fakeRecipientRepo
	emailService  *fakeEmailService
}

func newDispatchFixture(campaign *entity.Campaign) *dispatchFixture {
	campaignRepo := newFakeCampaignRepo(campaign)
	recipientRepo := newFakeRecipientRepo(campaign.Recipients...)
	emailService := newFakeEmailService()

	return &dispatchFixture{
		dispatcher: NewDispatcher(campaignRepo, recipientRepo, emailService,
			config.WebPages{ClaimPage: "https://certhub.test/claim"},
			config.Dispatch{SendIntervalMs: 0}),
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		emailService:  emailService,
	}
}

func newSendingCampaign(recipients ...*entity.Recipient) *entity.Campaign {
	campaign := entity.NewCampaign(1, "grad", 1)
	campaign.ID = goutil.Uint64(10)
	campaign.TemplateImageURL = goutil.String("https://files.test/template.png")
	campaign.Email = &entity.EmailSettings{
		Subject: goutil.String("Your certificate"),
		Body:    goutil.String("Congrats!\nWell done."),
	}

	for i, recipient := range recipients {
		recipient.ID = goutil.Uint64(uint64(100 + i))
		recipient.CampaignID = goutil.Uint64(10)
	}
	campaign.Recipients = recipients
	campaign.Status = entity.CampaignStatusSending

	return campaign
}

func TestRunCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("sends to every pending recipient and completes", func(t *testing.T) {
		campaign := newSendingCampaign(
			entity.NewRecipient("Alice", "alice@test.com", "AAAA1111"),
			entity.NewRecipient("Bob", "bob@test.com", "BBBB2222"),
		)
		f := newDispatchFixture(campaign)

		require.NoError(t, f.dispatcher.RunCampaign(ctx, campaign))

		require.Len(t, f.emailService.sent, 2)
		assert.Equal(t, "alice@test.com", f.emailService.sent[0].To.Email)
		assert.Equal(t, "Your certificate", f.emailService.sent[0].Subject)

		assert.Equal(t, entity.EmailStatusSent, f.recipientRepo.emailStatuses[100])
		assert.Equal(t, entity.EmailStatusSent, f.recipientRepo.emailStatuses[101])
		assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusCompleted}, f.campaignRepo.statusUpdates)
	})

	t.Run("claim link carries the code", func(t *testing.T) {
		campaign := newSendingCampaign(entity.NewRecipient("Alice", "alice@test.com", "AAAA1111"))
		f := newDispatchFixture(campaign)

		require.NoError(t, f.dispatcher.RunCampaign(ctx, campaign))

		require.Len(t, f.emailService.sent, 1)
		html := f.emailService.sent[0].HtmlContent
		assert.Contains(t, html, "Dear Alice")
		assert.Contains(t, html, "AAAA1111")
		assert.Contains(t, html, "https://certhub.test/claim?unique_code=AAAA1111")
		// authored newlines become line breaks
		assert.Contains(t, html, "Congrats!<br>Well done.")
	})

	t.Run("a failed send does not stop the run", func(t *testing.T) {
		campaign := newSendingCampaign(
			entity.NewRecipient("Alice", "alice@test.com", "AAAA1111"),
			entity.NewRecipient("Bob", "bob@test.com", "BBBB2222"),
		)
		f := newDispatchFixture(campaign)
		f.emailService.failFor["alice@test.com"] = errors.New("smtp down")

		require.NoError(t, f.dispatcher.RunCampaign(ctx, campaign))

		require.Len(t, f.emailService.sent, 1)
		assert.Equal(t, "bob@test.com", f.emailService.sent[0].To.Email)

		assert.Equal(t, entity.EmailStatusFailed, f.recipientRepo.emailStatuses[100])
		assert.Equal(t, entity.EmailStatusSent, f.recipientRepo.emailStatuses[101])

		// all recipients terminal, failed ones included, so the campaign completes
		assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusCompleted}, f.campaignRepo.statusUpdates)
	})

	t.Run("non pending recipients are skipped on resume", func(t *testing.T) {
		alreadySent := entity.NewRecipient("Alice", "alice@test.com", "AAAA1111")
		alreadySent.EmailStatus = entity.EmailStatusSent

		campaign := newSendingCampaign(
			alreadySent,
			entity.NewRecipient("Bob", "bob@test.com", "BBBB2222"),
		)
		f := newDispatchFixture(campaign)

		require.NoError(t, f.dispatcher.RunCampaign(ctx, campaign))

		require.Len(t, f.emailService.sent, 1)
		assert.Equal(t, "bob@test.com", f.emailService.sent[0].To.Email)
	})

	t.Run("ignores campaigns that are not sending", func(t *testing.T) {
		campaign := newSendingCampaign(entity.NewRecipient("Alice", "alice@test.com", "AAAA1111"))
		campaign.Status = entity.CampaignStatusDraft
		f := newDispatchFixture(campaign)

		require.NoError(t, f.dispatcher.RunCampaign(ctx, campaign))

		assert.Empty(t, f.emailService.sent)
		assert.Empty(t, f.campaignRepo.statusUpdates)
	})

	t.Run("stays sending while recipients are pending elsewhere", func(t *testing.T) {
		pendingElsewhere := entity.NewRecipient("Carol", "carol@test.com", "CCCC3333")

		campaign := newSendingCampaign(entity.NewRecipient("Alice", "alice@test.com", "AAAA1111"))
		f := newDispatchFixture(campaign)

		// another recipient of the same campaign not seen by this run
		pendingElsewhere.ID = goutil.Uint64(999)
		pendingElsewhere.CampaignID = goutil.Uint64(10)
		f.recipientRepo.byCode["CCCC3333"] = pendingElsewhere

		require.NoError(t, f.dispatcher.RunCampaign(ctx, campaign))

		assert.Empty(t, f.campaignRepo.statusUpdates)
	})
}
