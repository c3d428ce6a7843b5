package handler

import (
	"context"

	"certhub/dep"
	"certhub/entity"
	"certhub/render"
	"certhub/repo"
)

type fakeCampaignRepo struct {
	repo.CampaignRepo

	campaigns    map[uint64]*entity.Campaign
	count        uint64
	replaceCalls int

	statusUpdates []entity.CampaignStatus
	updateStatus  func(campaignID uint64, from, to entity.CampaignStatus) (bool, error)
}

func newFakeCampaignRepo(campaigns ...*entity.Campaign) *fakeCampaignRepo {
	m := make(map[uint64]*entity.Campaign)
	for _, c := range campaigns {
		m[c.GetID()] = c
	}
	return &fakeCampaignRepo{campaigns: m}
}

func (r *fakeCampaignRepo) GetByID(_ context.Context, campaignID uint64) (*entity.Campaign, error) {
	if c, ok := r.campaigns[campaignID]; ok {
		return c, nil
	}
	return nil, repo.ErrCampaignNotFound
}

func (r *fakeCampaignRepo) GetByIDAndUserID(_ context.Context, userID, campaignID uint64) (*entity.Campaign, error) {
	if c, ok := r.campaigns[campaignID]; ok && c.GetUserID() == userID {
		return c, nil
	}
	return nil, repo.ErrCampaignNotFound
}

func (r *fakeCampaignRepo) CountByUserID(_ context.Context, _ uint64) (uint64, error) {
	return r.count, nil
}

func (r *fakeCampaignRepo) Create(_ context.Context, campaign *entity.Campaign) (uint64, error) {
	id := uint64(len(r.campaigns) + 1)
	campaign.ID = &id
	r.campaigns[id] = campaign
	return id, nil
}

func (r *fakeCampaignRepo) Update(_ context.Context, campaign *entity.Campaign) error {
	r.campaigns[campaign.GetID()] = campaign
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(_ context.Context, campaignID uint64, from, to entity.CampaignStatus) (bool, error) {
	if r.updateStatus != nil {
		return r.updateStatus(campaignID, from, to)
	}
	r.statusUpdates = append(r.statusUpdates, to)
	return true, nil
}

func (r *fakeCampaignRepo) ReplaceRecipients(_ context.Context, campaign *entity.Campaign, recipients []*entity.Recipient) error {
	r.replaceCalls++
	campaign.Recipients = recipients
	r.campaigns[campaign.GetID()] = campaign
	return nil
}

type fakeRecipientRepo struct {
	repo.RecipientRepo

	byCode map[string]*entity.Recipient

	certificateURLs map[uint64]string
	setCertWins     bool
	winnerURL       string

	emailStatuses map[uint64]entity.EmailStatus
}

func newFakeRecipientRepo(recipients ...*entity.Recipient) *fakeRecipientRepo {
	byCode := make(map[string]*entity.Recipient)
	for _, r := range recipients {
		byCode[r.GetUniqueCode()] = r
	}
	return &fakeRecipientRepo{
		byCode:          byCode,
		certificateURLs: make(map[uint64]string),
		setCertWins:     true,
		emailStatuses:   make(map[uint64]entity.EmailStatus),
	}
}

func (r *fakeRecipientRepo) GetByCode(_ context.Context, code string) (*entity.Recipient, error) {
	if recipient, ok := r.byCode[code]; ok {
		return recipient, nil
	}
	return nil, repo.ErrRecipientNotFound
}

func (r *fakeRecipientRepo) GetManyByCampaignID(_ context.Context, campaignID uint64) ([]*entity.Recipient, error) {
	var out []*entity.Recipient
	for _, recipient := range r.byCode {
		if recipient.GetCampaignID() == campaignID {
			out = append(out, recipient)
		}
	}
	return out, nil
}

func (r *fakeRecipientRepo) SetCertificateURL(_ context.Context, recipientID uint64, url string) (bool, error) {
	if !r.setCertWins {
		// behave like a concurrent claim already persisted its render
		for _, recipient := range r.byCode {
			if recipient.GetID() == recipientID {
				recipient.CertificateURL = &r.winnerURL
			}
		}
		return false, nil
	}
	r.certificateURLs[recipientID] = url
	for _, recipient := range r.byCode {
		if recipient.GetID() == recipientID {
			recipient.CertificateURL = &url
		}
	}
	return true, nil
}

func (r *fakeRecipientRepo) SetEmailStatus(_ context.Context, recipientID uint64, from, to entity.EmailStatus) (bool, error) {
	r.emailStatuses[recipientID] = to
	for _, recipient := range r.byCode {
		if recipient.GetID() == recipientID && recipient.GetEmailStatus() == from {
			recipient.EmailStatus = to
			return true, nil
		}
	}
	return false, nil
}

type fakePlanRepo struct {
	plan *entity.Plan
}

func (r *fakePlanRepo) GetByID(_ context.Context, _ uint64) (*entity.Plan, error) {
	return r.plan, nil
}

type fakeTypographyRepo struct {
	repo.TypographyRepo

	typographies map[uint64]*entity.Typography
}

func newFakeTypographyRepo(typographies ...*entity.Typography) *fakeTypographyRepo {
	m := make(map[uint64]*entity.Typography)
	for _, ty := range typographies {
		m[ty.GetID()] = ty
	}
	return &fakeTypographyRepo{typographies: m}
}

func (r *fakeTypographyRepo) GetByID(_ context.Context, typographyID uint64) (*entity.Typography, error) {
	if ty, ok := r.typographies[typographyID]; ok {
		return ty, nil
	}
	return nil, repo.ErrTypographyNotFound
}

func (r *fakeTypographyRepo) GetDefault(_ context.Context) (*entity.Typography, error) {
	for _, ty := range r.typographies {
		return ty, nil
	}
	return nil, repo.ErrTypographyNotFound
}

type fakeFileRepo struct {
	uploads map[string][]byte
	url     string
}

func newFakeFileRepo(url string) *fakeFileRepo {
	return &fakeFileRepo{
		uploads: make(map[string][]byte),
		url:     url,
	}
}

func (r *fakeFileRepo) Upload(_ context.Context, folderName, fileName string, data []byte) (string, error) {
	r.uploads[folderName+"/"+fileName] = data
	return r.url, nil
}

func (r *fakeFileRepo) Close(_ context.Context) error {
	return nil
}

type fakeCache struct {
	store map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]interface{})}
}

func (c *fakeCache) Get(_ context.Context, prefix string, uniqKey interface{}) (interface{}, bool) {
	v, ok := c.store[cacheKey(prefix, uniqKey)]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, prefix string, uniqKey, value interface{}) {
	c.store[cacheKey(prefix, uniqKey)] = value
}

func (c *fakeCache) Del(_ context.Context, prefix string, uniqKey interface{}) {
	delete(c.store, cacheKey(prefix, uniqKey))
}

func (c *fakeCache) Flush(_ context.Context) {}

func (c *fakeCache) Close(_ context.Context) error { return nil }

func cacheKey(prefix string, uniqKey interface{}) string {
	return prefix + ":" + toKeyString(uniqKey)
}

func toKeyString(v interface{}) string {
	switch k := v.(type) {
	case string:
		return k
	default:
		return "k"
	}
}

type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	if b, ok := f.files[url]; ok {
		return b, nil
	}
	return nil, repo.ErrRecipientNotFound
}

type fakeCompositor struct {
	output []byte
	err    error
	calls  int
}

func (c *fakeCompositor) Compose(_ *render.Input) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.output, nil
}

type fakeEmailService struct {
	sent    []*dep.SendSmtpEmail
	failFor map[string]error
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{failFor: make(map[string]error)}
}

func (s *fakeEmailService) SendEmail(_ context.Context, email *dep.SendSmtpEmail) error {
	if err, ok := s.failFor[email.To.Email]; ok {
		return err
	}
	s.sent = append(s.sent, email)
	return nil
}

func (s *fakeEmailService) Close(_ context.Context) error {
	return nil
}

type fakeDispatcher struct {
	dispatched []uint64
}

func (d *fakeDispatcher) Dispatch(_ context.Context, campaignID uint64) error {
	d.dispatched = append(d.dispatched, campaignID)
	return nil
}

func (d *fakeDispatcher) RunCampaign(_ context.Context, _ *entity.Campaign) error {
	return nil
}
