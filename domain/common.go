package domain

import (
	"errors"
)

const (
	RoleOperator = "operator"
)

var (
	MessageUserNotAllowed     = "user not allowed"
	MessageFailedBodyRequest  = "failed to parse request"
	MessageFailedGetToken     = "failed to get token"
	MessageFailedTokenInvalid = "failed to token invalid"
	MessageSuccessPing        = "pong"

	ErrUserNotAllowed = errors.New("user not allowed")
	ErrTokenNotFound  = errors.New("failed to token not found")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrInvalidPeriod  = errors.New("invalid report period")
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
)

type (
	PaginationRequest struct {
		Page  int `query:"page" validate:"omitempty,min=1"`
		Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
	}

	PaginationResponse struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	}
)

func (p *PaginationRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 50
	}
}

func (p PaginationRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
