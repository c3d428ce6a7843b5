package entity

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"certhub/pkg/goutil"
)

type EmailStatus uint32

const (
	EmailStatusUnknown EmailStatus = iota
	EmailStatusPending
	EmailStatusSent
	EmailStatusFailed
)

var emailStatusNames = map[EmailStatus]string{
	EmailStatusPending: "PENDING",
	EmailStatusSent:    "SENT",
	EmailStatusFailed:  "FAILED",
}

func (s EmailStatus) String() string {
	if name, ok := emailStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// UniqueCodeLen is the claim code length: 4 random bytes hex-encoded.
const UniqueCodeLen = 8

// NewUniqueCode draws a claim code from crypto/rand, rendered as fixed-width
// uppercase hex. Uniqueness across batches is backstopped by the store's
// unique index on the code column.
func NewUniqueCode() (string, error) {
	b := make([]byte, UniqueCodeLen/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeUniqueCode maps user input to the stored code form.
func NormalizeUniqueCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Recipient struct {
	ID             *uint64     `json:"id,omitempty"`
	CampaignID     *uint64     `json:"campaign_id,omitempty"`
	Name           *string     `json:"name,omitempty"`
	Email          *string     `json:"email,omitempty"`
	UniqueCode     *string     `json:"unique_code,omitempty"`
	EmailStatus    EmailStatus `json:"email_status,omitempty"`
	CertificateURL *string     `json:"certificate_url,omitempty"`
	ClaimedAt      *uint64     `json:"claimed_at,omitempty"`
	CreateTime     *uint64     `json:"create_time,omitempty"`
	UpdateTime     *uint64     `json:"update_time,omitempty"`
}

func NewRecipient(name, email, uniqueCode string) *Recipient {
	now := uint64(time.Now().Unix())

	return &Recipient{
		Name:        goutil.String(name),
		Email:       goutil.String(email),
		UniqueCode:  goutil.String(uniqueCode),
		EmailStatus: EmailStatusPending,
		CreateTime:  goutil.Uint64(now),
		UpdateTime:  goutil.Uint64(now),
	}
}

func (e *Recipient) IsPending() bool {
	return e.GetEmailStatus() == EmailStatusPending
}

func (e *Recipient) IsClaimed() bool {
	return e.GetCertificateURL() != ""
}

func (e *Recipient) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Recipient) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *Recipient) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Recipient) GetEmail() string {
	if e != nil && e.Email != nil {
		return *e.Email
	}
	return ""
}

func (e *Recipient) GetUniqueCode() string {
	if e != nil && e.UniqueCode != nil {
		return *e.UniqueCode
	}
	return ""
}

func (e *Recipient) GetEmailStatus() EmailStatus {
	if e != nil {
		return e.EmailStatus
	}
	return EmailStatusUnknown
}

func (e *Recipient) GetCertificateURL() string {
	if e != nil && e.CertificateURL != nil {
		return *e.CertificateURL
	}
	return ""
}

func (e *Recipient) GetClaimedAt() uint64 {
	if e != nil && e.ClaimedAt != nil {
		return *e.ClaimedAt
	}
	return 0
}
