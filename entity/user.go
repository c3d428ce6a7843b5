package entity

import (
	"time"

	"certhub/pkg/goutil"
)

type UserStatus uint32

const (
	UserStatusUnknown UserStatus = iota
	UserStatusNormal
	UserStatusDeleted
)

type User struct {
	ID         *uint64    `json:"id,omitempty"`
	Email      *string    `json:"email,omitempty"`
	Password   *string    `json:"-"`
	PlanID     *uint64    `json:"plan_id,omitempty"`
	Status     UserStatus `json:"status,omitempty"`
	CreateTime *uint64    `json:"create_time,omitempty"`
	UpdateTime *uint64    `json:"update_time,omitempty"`
}

func NewUser(email, password string, planID uint64) (*User, error) {
	now := uint64(time.Now().Unix())

	passwordHash, err := goutil.BCrypt(password)
	if err != nil {
		return nil, err
	}

	return &User{
		Email:      goutil.String(email),
		Password:   goutil.String(passwordHash),
		PlanID:     goutil.Uint64(planID),
		Status:     UserStatusNormal,
		CreateTime: goutil.Uint64(now),
		UpdateTime: goutil.Uint64(now),
	}, nil
}

func (e *User) ComparePassword(input string) bool {
	return goutil.CompareBCrypt(e.GetPassword(), input) == nil
}

func (e *User) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *User) GetEmail() string {
	if e != nil && e.Email != nil {
		return *e.Email
	}
	return ""
}

func (e *User) GetPassword() string {
	if e != nil && e.Password != nil {
		return *e.Password
	}
	return ""
}

func (e *User) GetPlanID() uint64 {
	if e != nil && e.PlanID != nil {
		return *e.PlanID
	}
	return 0
}
