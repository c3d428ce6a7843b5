package handler

import (
	"context"
	"net/http"
	"testing"

	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"
	"certhub/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTemplateURL = "https://files.test/template.png"
	testFontURL     = "https://files.test/font.ttf"
	testCertURL     = "https://files.test/certificate.png"
)

type claimFixture struct {
	handler       CertificateHandler
	campaignRepo  *fakeCampaignRepo
	recipientRepo *fakeRecipientRepo
	compositor    *fakeCompositor
	fileRepo      *fakeFileRepo
}

func newClaimFixture(campaign *entity.Campaign, recipients ...*entity.Recipient) *claimFixture {
	campaignRepo := newFakeCampaignRepo(campaign)
	recipientRepo := newFakeRecipientRepo(recipients...)
	typographyRepo := newFakeTypographyRepo(&entity.Typography{
		ID:          goutil.Uint64(1),
		Name:        goutil.String("Serif"),
		FontFileURL: goutil.String(testFontURL),
	})
	fileRepo := newFakeFileRepo(testCertURL)
	compositor := &fakeCompositor{output: []byte("png-bytes")}
	fetcher := &fakeFetcher{files: map[string][]byte{
		testTemplateURL: []byte("template-bytes"),
		testFontURL:     []byte("font-bytes"),
	}}

	return &claimFixture{
		handler: NewCertificateHandler(campaignRepo, recipientRepo, typographyRepo,
			fileRepo, newFakeCache(), fetcher, compositor),
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		compositor:    compositor,
		fileRepo:      fileRepo,
	}
}

func newClaimableCampaign() *entity.Campaign {
	campaign := entity.NewCampaign(1, "grad", 1)
	campaign.ID = goutil.Uint64(10)
	campaign.TemplateImageURL = goutil.String(testTemplateURL)
	return campaign
}

func newClaimRecipient(code string) *entity.Recipient {
	recipient := entity.NewRecipient("Alice", "alice@test.com", code)
	recipient.ID = goutil.Uint64(100)
	recipient.CampaignID = goutil.Uint64(10)
	return recipient
}

func TestClaimCertificate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown code is not found", func(t *testing.T) {
		f := newClaimFixture(newClaimableCampaign())

		err := f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String("DEADBEEF"),
		}, new(ClaimCertificateResponse))
		assert.ErrorIs(t, err, repo.ErrRecipientNotFound)
	})

	t.Run("malformed code is rejected before lookup", func(t *testing.T) {
		f := newClaimFixture(newClaimableCampaign())

		for _, code := range []string{"", "XYZ", "NOTHEX!!", "DEADBEEF00AA"} {
			err := f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
				UniqueCode: goutil.String(code),
			}, new(ClaimCertificateResponse))
			require.Error(t, err, code)

			httpCode, _ := errutil.ParseHttpError(err)
			assert.Equal(t, http.StatusBadRequest, httpCode, code)
		}
	})

	t.Run("first claim renders and persists", func(t *testing.T) {
		f := newClaimFixture(newClaimableCampaign(), newClaimRecipient("ABCD1234"))

		res := new(ClaimCertificateResponse)
		require.NoError(t, f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String("ABCD1234"),
		}, res))

		assert.Equal(t, 1, f.compositor.calls)
		assert.Equal(t, testCertURL, *res.CertificateURL)
		assert.Equal(t, "Alice", *res.RecipientName)
		assert.Equal(t, "grad", *res.CampaignName)
		assert.Equal(t, testCertURL, f.recipientRepo.certificateURLs[100])
	})

	t.Run("code is normalized", func(t *testing.T) {
		f := newClaimFixture(newClaimableCampaign(), newClaimRecipient("ABCD1234"))

		res := new(ClaimCertificateResponse)
		require.NoError(t, f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String(" abcd1234 "),
		}, res))
		assert.Equal(t, testCertURL, *res.CertificateURL)
	})

	t.Run("second claim returns stored copy without rendering", func(t *testing.T) {
		recipient := newClaimRecipient("ABCD1234")
		recipient.CertificateURL = goutil.String("https://files.test/already.png")
		f := newClaimFixture(newClaimableCampaign(), recipient)

		res := new(ClaimCertificateResponse)
		require.NoError(t, f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String("ABCD1234"),
		}, res))

		assert.Zero(t, f.compositor.calls)
		assert.Equal(t, "https://files.test/already.png", *res.CertificateURL)
	})

	t.Run("losing the persist race serves the winner", func(t *testing.T) {
		recipient := newClaimRecipient("ABCD1234")
		f := newClaimFixture(newClaimableCampaign(), recipient)
		f.recipientRepo.setCertWins = false
		f.recipientRepo.winnerURL = "https://files.test/winner.png"

		res := new(ClaimCertificateResponse)
		require.NoError(t, f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String("ABCD1234"),
		}, res))

		assert.Equal(t, 1, f.compositor.calls)
		assert.Equal(t, "https://files.test/winner.png", *res.CertificateURL)
	})

	t.Run("missing template blocks the claim", func(t *testing.T) {
		campaign := newClaimableCampaign()
		campaign.TemplateImageURL = nil
		f := newClaimFixture(campaign, newClaimRecipient("ABCD1234"))

		err := f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String("ABCD1234"),
		}, new(ClaimCertificateResponse))
		require.Error(t, err)

		httpCode, _ := errutil.ParseHttpError(err)
		assert.Equal(t, http.StatusPreconditionFailed, httpCode)
		assert.Zero(t, f.compositor.calls)
	})

	t.Run("invalid config blocks the claim", func(t *testing.T) {
		campaign := newClaimableCampaign()
		campaign.Config.NamePosX = nil
		f := newClaimFixture(campaign, newClaimRecipient("ABCD1234"))

		err := f.handler.ClaimCertificate(ctx, &ClaimCertificateRequest{
			UniqueCode: goutil.String("ABCD1234"),
		}, new(ClaimCertificateResponse))
		require.Error(t, err)

		httpCode, _ := errutil.ParseHttpError(err)
		assert.Equal(t, http.StatusPreconditionFailed, httpCode)
	})
}
