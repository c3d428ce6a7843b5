package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"testing"

	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/goutil"
	"certhub/pkg/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryFile struct {
	*bytes.Reader
}

func (memoryFile) Close() error { return nil }

func csvFileMeta(content string) *router.FileMeta {
	return &router.FileMeta{
		File: memoryFile{bytes.NewReader([]byte(content))},
		FileHeader: &multipart.FileHeader{
			Filename: "recipients.csv",
			Size:     int64(len(content)),
			Header:   textproto.MIMEHeader{"Content-Type": []string{"text/csv"}},
		},
	}
}

func TestUploadRecipients(t *testing.T) {
	newOwnedCampaign := func() *entity.Campaign {
		campaign := entity.NewCampaign(1, "grad", 1)
		campaign.ID = goutil.Uint64(10)
		campaign.TemplateImageURL = goutil.String("https://files.test/template.png")
		return campaign
	}

	t.Run("replaces the recipient list", func(t *testing.T) {
		f := newCampaignFixture(newOwnedCampaign())

		res := new(UploadRecipientsResponse)
		require.NoError(t, f.handler.UploadRecipients(userCtx(), &UploadRecipientsRequest{
			CampaignID: goutil.Uint64(10),
			FileMeta:   csvFileMeta("name,email\nAlice,alice@test.com\nBob,bob@test.com\n"),
		}, res))

		require.Len(t, res.Campaign.Recipients, 2)
		assert.Equal(t, "Alice", res.Campaign.Recipients[0].GetName())
		assert.NotEmpty(t, res.Campaign.GetRecipientsFileURL())
		assert.Equal(t, entity.CampaignStatusReady, res.Campaign.GetStatus())
		assert.Equal(t, 1, f.campaignRepo.replaceCalls)
	})

	t.Run("over quota leaves the prior list", func(t *testing.T) {
		campaign := newOwnedCampaign()
		campaign.Recipients = []*entity.Recipient{
			entity.NewRecipient("Alice", "alice@test.com", "AAAA1111"),
		}
		f := newCampaignFixture(campaign)
		f.planRepo.plan.MaxRecipientsPerCampaign = goutil.Uint64(2)

		err := f.handler.UploadRecipients(userCtx(), &UploadRecipientsRequest{
			CampaignID: goutil.Uint64(10),
			FileMeta:   csvFileMeta("name,email\nBob,bob@test.com\nCarol,carol@test.com\nDave,dave@test.com\n"),
		}, new(UploadRecipientsResponse))
		require.Error(t, err)

		code, _ := errutil.ParseHttpError(err)
		assert.Equal(t, http.StatusForbidden, code)

		assert.Equal(t, 0, f.campaignRepo.replaceCalls)
		stored := f.campaignRepo.campaigns[10]
		require.Len(t, stored.Recipients, 1)
		assert.Equal(t, "AAAA1111", stored.Recipients[0].GetUniqueCode())
	})

	t.Run("locked while sending", func(t *testing.T) {
		campaign := newOwnedCampaign()
		campaign.Status = entity.CampaignStatusSending
		f := newCampaignFixture(campaign)

		err := f.handler.UploadRecipients(userCtx(), &UploadRecipientsRequest{
			CampaignID: goutil.Uint64(10),
			FileMeta:   csvFileMeta("name,email\nAlice,alice@test.com\n"),
		}, new(UploadRecipientsResponse))
		require.Error(t, err)

		code, _ := errutil.ParseHttpError(err)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, 0, f.campaignRepo.replaceCalls)
	})

	t.Run("malformed file is a validation error", func(t *testing.T) {
		f := newCampaignFixture(newOwnedCampaign())

		err := f.handler.UploadRecipients(userCtx(), &UploadRecipientsRequest{
			CampaignID: goutil.Uint64(10),
			FileMeta:   csvFileMeta("email\nalice@test.com\n"),
		}, new(UploadRecipientsResponse))
		require.ErrorIs(t, err, ErrMissingNameColumn)

		code, _ := errutil.ParseHttpError(err)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestParseRecipientRows(t *testing.T) {
	t.Run("columns in any order", func(t *testing.T) {
		rows, err := parseRecipientRows([]byte("email,name\nalice@test.com,Alice\nbob@test.com,Bob\n"))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Alice", rows[0].name)
		assert.Equal(t, "alice@test.com", rows[0].email)
	})

	t.Run("extra columns ignored", func(t *testing.T) {
		rows, err := parseRecipientRows([]byte("id,Name,EMAIL,score\n1,Alice,alice@test.com,90\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Alice", rows[0].name)
	})

	t.Run("incomplete rows are dropped", func(t *testing.T) {
		rows, err := parseRecipientRows([]byte("name,email\nAlice,alice@test.com\n,bob@test.com\nCarol,\nDave,dave@test.com\n"))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Alice", rows[0].name)
		assert.Equal(t, "Dave", rows[1].name)
	})

	t.Run("values are trimmed", func(t *testing.T) {
		rows, err := parseRecipientRows([]byte("name,email\n Alice , alice@test.com \n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Alice", rows[0].name)
		assert.Equal(t, "alice@test.com", rows[0].email)
	})

	t.Run("missing name column", func(t *testing.T) {
		_, err := parseRecipientRows([]byte("email\nalice@test.com\n"))
		assert.ErrorIs(t, err, ErrMissingNameColumn)
	})

	t.Run("missing email column", func(t *testing.T) {
		_, err := parseRecipientRows([]byte("name\nAlice\n"))
		assert.ErrorIs(t, err, ErrMissingEmailColumn)
	})

	t.Run("all rows filtered out", func(t *testing.T) {
		_, err := parseRecipientRows([]byte("name,email\n,\n , \n"))
		assert.ErrorIs(t, err, ErrNoValidRecipients)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := parseRecipientRows([]byte("name,email\n"))
		assert.ErrorIs(t, err, ErrNoValidRecipients)
	})
}

func TestBuildRecipients(t *testing.T) {
	rows := []*recipientRow{
		{name: "Alice", email: "alice@test.com"},
		{name: "Bob", email: "bob@test.com"},
		{name: "Carol", email: "carol@test.com"},
	}

	recipients, err := buildRecipients(rows)
	require.NoError(t, err)
	require.Len(t, recipients, 3)

	codeRegex := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]struct{})
	for i, recipient := range recipients {
		assert.Equal(t, rows[i].name, recipient.GetName())
		assert.Equal(t, rows[i].email, recipient.GetEmail())
		assert.True(t, recipient.IsPending())
		assert.Regexp(t, codeRegex, recipient.GetUniqueCode())
		seen[recipient.GetUniqueCode()] = struct{}{}
	}
	assert.Len(t, seen, 3)
}
