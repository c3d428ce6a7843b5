package entity

import (
	"time"

	"certhub/pkg/goutil"
)

type Typography struct {
	ID          *uint64 `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	FontFileURL *string `json:"font_file_url,omitempty"`
	CreateTime  *uint64 `json:"create_time,omitempty"`
	UpdateTime  *uint64 `json:"update_time,omitempty"`
}

func NewTypography(name, fontFileURL string) *Typography {
	now := uint64(time.Now().Unix())

	return &Typography{
		Name:        goutil.String(name),
		FontFileURL: goutil.String(fontFileURL),
		CreateTime:  goutil.Uint64(now),
		UpdateTime:  goutil.Uint64(now),
	}
}

func (e *Typography) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Typography) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Typography) GetFontFileURL() string {
	if e != nil && e.FontFileURL != nil {
		return *e.FontFileURL
	}
	return ""
}
