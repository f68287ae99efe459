package model

import "time"

type SessionStatus int

const (
	SessionValid SessionStatus = iota
	SessionTemporarilyInvalid
	SessionInvalid
)

func (s SessionStatus) String() string {
	switch s {
	case SessionValid:
		return "valid"
	case SessionTemporarilyInvalid:
		return "temporarily-invalid"
	case SessionInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

type Session struct {
	AccessToken string        `json:"accessToken"`
	ClientToken string        `json:"clientToken"`
	AccountId   string        `json:"accountId"`
	ProfileId   string        `json:"profileId"`
	CreatedAt   time.Time     `json:"createdAt"`
	Status      SessionStatus `json:"status"`
}
