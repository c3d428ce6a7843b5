package entity

import (
	"errors"
	"fmt"
	"time"

	"certhub/pkg/goutil"
)

type CampaignStatus uint32

const (
	CampaignStatusUnknown CampaignStatus = iota
	CampaignStatusDraft
	CampaignStatusReady
	CampaignStatusSending
	CampaignStatusCompleted
)

var campaignStatusNames = map[CampaignStatus]string{
	CampaignStatusDraft:     "DRAFT",
	CampaignStatusReady:     "READY",
	CampaignStatusSending:   "SENDING",
	CampaignStatusCompleted: "COMPLETED",
}

func (s CampaignStatus) String() string {
	if name, ok := campaignStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// forward-only transitions
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:   {CampaignStatusReady, CampaignStatusSending},
	CampaignStatusReady:   {CampaignStatusSending},
	CampaignStatusSending: {CampaignStatusCompleted},
}

var (
	ErrMissingTemplate   = errors.New("campaign has no template image")
	ErrMissingRecipients = errors.New("campaign has no recipients")
	ErrCampaignLocked    = errors.New("campaign is sending, mutation not allowed")
)

// CampaignConfig holds the certificate text placement and style. Code placement
// is all-or-nothing: either both positions are set or the code is not drawn.
type CampaignConfig struct {
	NamePosX     *int64  `json:"name_pos_x,omitempty"`
	NamePosY     *int64  `json:"name_pos_y,omitempty"`
	NameFontSize *uint32 `json:"name_font_size,omitempty"`
	NameColor    *string `json:"name_color,omitempty"`
	TypographyID *uint64 `json:"typography_id,omitempty"`
	CodePosX     *int64  `json:"code_pos_x,omitempty"`
	CodePosY     *int64  `json:"code_pos_y,omitempty"`
	CodeFontSize *uint32 `json:"code_font_size,omitempty"`
	CodeColor    *string `json:"code_color,omitempty"`
}

func (c *CampaignConfig) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	if c.NamePosX == nil || c.NamePosY == nil {
		return errors.New("name position is required")
	}

	if c.NameFontSize == nil || *c.NameFontSize == 0 {
		return errors.New("name font size is required")
	}

	if c.TypographyID == nil {
		return errors.New("typography is required")
	}

	if (c.CodePosX == nil) != (c.CodePosY == nil) {
		return errors.New("code position must set both x and y")
	}

	if !c.HasCodePlacement() && (c.CodeFontSize != nil || c.CodeColor != nil) {
		return errors.New("code style requires a code position")
	}

	return nil
}

func (c *CampaignConfig) HasCodePlacement() bool {
	return c != nil && c.CodePosX != nil && c.CodePosY != nil
}

func (c *CampaignConfig) GetNamePosX() int64 {
	if c != nil && c.NamePosX != nil {
		return *c.NamePosX
	}
	return 0
}

func (c *CampaignConfig) GetNamePosY() int64 {
	if c != nil && c.NamePosY != nil {
		return *c.NamePosY
	}
	return 0
}

func (c *CampaignConfig) GetNameFontSize() uint32 {
	if c != nil && c.NameFontSize != nil {
		return *c.NameFontSize
	}
	return 0
}

func (c *CampaignConfig) GetNameColor() string {
	if c != nil && c.NameColor != nil {
		return *c.NameColor
	}
	return ""
}

func (c *CampaignConfig) GetTypographyID() uint64 {
	if c != nil && c.TypographyID != nil {
		return *c.TypographyID
	}
	return 0
}

func (c *CampaignConfig) GetCodePosX() int64 {
	if c != nil && c.CodePosX != nil {
		return *c.CodePosX
	}
	return 0
}

func (c *CampaignConfig) GetCodePosY() int64 {
	if c != nil && c.CodePosY != nil {
		return *c.CodePosY
	}
	return 0
}

func (c *CampaignConfig) GetCodeFontSize() uint32 {
	if c != nil && c.CodeFontSize != nil {
		return *c.CodeFontSize
	}
	return 0
}

func (c *CampaignConfig) GetCodeColor() string {
	if c != nil && c.CodeColor != nil {
		return *c.CodeColor
	}
	return ""
}

type EmailSettings struct {
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
}

func (e *EmailSettings) GetSubject() string {
	if e != nil && e.Subject != nil {
		return *e.Subject
	}
	return ""
}

func (e *EmailSettings) GetBody() string {
	if e != nil && e.Body != nil {
		return *e.Body
	}
	return ""
}

type Campaign struct {
	ID                *uint64         `json:"id,omitempty"`
	UserID            *uint64         `json:"user_id,omitempty"`
	Name              *string         `json:"name,omitempty"`
	Status            CampaignStatus  `json:"status,omitempty"`
	TemplateImageURL  *string         `json:"template_image_url,omitempty"`
	RecipientsFileURL *string         `json:"recipients_file_url,omitempty"`
	Config            *CampaignConfig `json:"config,omitempty"`
	Email             *EmailSettings  `json:"email,omitempty"`
	Recipients        []*Recipient    `json:"recipients,omitempty"`
	CreateTime        *uint64         `json:"create_time,omitempty"`
	UpdateTime        *uint64         `json:"update_time,omitempty"`
}

// NewCampaign creates a draft campaign with the system defaults. The default
// typography must exist before any campaign can be created.
func NewCampaign(userID uint64, name string, typographyID uint64) *Campaign {
	now := uint64(time.Now().Unix())

	return &Campaign{
		UserID: goutil.Uint64(userID),
		Name:   goutil.String(name),
		Status: CampaignStatusDraft,
		Config: &CampaignConfig{
			NamePosX:     goutil.Int64(100),
			NamePosY:     goutil.Int64(100),
			NameFontSize: goutil.Uint32(20),
			NameColor:    goutil.String("#000000"),
			TypographyID: goutil.Uint64(typographyID),
			CodePosX:     goutil.Int64(100),
			CodePosY:     goutil.Int64(150),
			CodeFontSize: goutil.Uint32(12),
			CodeColor:    goutil.String("#000000"),
		},
		Email: &EmailSettings{
			Subject: goutil.String("Your certificate"),
			Body:    goutil.String("Hello, your certificate is ready to claim."),
		},
		CreateTime: goutil.Uint64(now),
		UpdateTime: goutil.Uint64(now),
	}
}

// CanActivate reports whether the campaign satisfies the SENDING preconditions.
func (e *Campaign) CanActivate() error {
	if e.GetTemplateImageURL() == "" {
		return ErrMissingTemplate
	}
	if len(e.Recipients) == 0 {
		return ErrMissingRecipients
	}
	return nil
}

// TransitionTo is the single gate for status changes. Invalid moves and moves
// whose preconditions are not met are rejected without mutating the campaign.
func (e *Campaign) TransitionTo(target CampaignStatus) error {
	var allowed bool
	for _, next := range campaignTransitions[e.GetStatus()] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("invalid status transition: %s -> %s", e.GetStatus(), target)
	}

	if target == CampaignStatusReady || target == CampaignStatusSending {
		if err := e.CanActivate(); err != nil {
			return err
		}
	}

	e.Status = target
	e.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))

	return nil
}

// IsEditable reports whether config/email/template/recipient mutations are
// allowed. A campaign in SENDING is locked.
func (e *Campaign) IsEditable() bool {
	return e.GetStatus() != CampaignStatusSending
}

// MarkReadyIfEligible promotes a draft to READY once template and recipients
// are both present.
func (e *Campaign) MarkReadyIfEligible() {
	if e.GetStatus() != CampaignStatusDraft {
		return
	}
	if err := e.CanActivate(); err != nil {
		return
	}
	_ = e.TransitionTo(CampaignStatusReady)
}

func (e *Campaign) Update(newCampaign *Campaign) bool {
	var hasChange bool

	if newCampaign.Name != nil && e.GetName() != newCampaign.GetName() {
		hasChange = true
		e.Name = newCampaign.Name
	}

	if newCampaign.TemplateImageURL != nil && e.GetTemplateImageURL() != newCampaign.GetTemplateImageURL() {
		hasChange = true
		e.TemplateImageURL = newCampaign.TemplateImageURL
	}

	if newCampaign.Config != nil {
		hasChange = true
		e.Config = newCampaign.Config
	}

	if newCampaign.Email != nil {
		hasChange = true

		if e.Email == nil {
			e.Email = new(EmailSettings)
		}
		if newCampaign.Email.Subject != nil {
			e.Email.Subject = newCampaign.Email.Subject
		}
		if newCampaign.Email.Body != nil {
			e.Email.Body = newCampaign.Email.Body
		}
	}

	if hasChange {
		e.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))
	}

	return hasChange
}

func (e *Campaign) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Campaign) GetUserID() uint64 {
	if e != nil && e.UserID != nil {
		return *e.UserID
	}
	return 0
}

func (e *Campaign) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Campaign) GetStatus() CampaignStatus {
	if e != nil {
		return e.Status
	}
	return CampaignStatusUnknown
}

func (e *Campaign) GetTemplateImageURL() string {
	if e != nil && e.TemplateImageURL != nil {
		return *e.TemplateImageURL
	}
	return ""
}

func (e *Campaign) GetRecipientsFileURL() string {
	if e != nil && e.RecipientsFileURL != nil {
		return *e.RecipientsFileURL
	}
	return ""
}

func (e *Campaign) GetConfig() *CampaignConfig {
	if e != nil {
		return e.Config
	}
	return nil
}

func (e *Campaign) GetEmail() *EmailSettings {
	if e != nil {
		return e.Email
	}
	return nil
}
