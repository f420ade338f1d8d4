package repository

import (
	"context"
	"errors"

	"rlserver-tools/internal/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("card code already exists")
)

// RechargeCardFilter narrows Count. Nil fields match every row.
type RechargeCardFilter struct {
	IsUsed   *bool
	VIPLevel *int
}

// RechargeCardRepository persists recharge cards. BatchCreate is all-or-nothing:
// either every card is committed or none is.
type RechargeCardRepository interface {
	BatchCreate(ctx context.Context, cards []*model.RechargeCard) error
	FindByCode(ctx context.Context, code string) (*model.RechargeCard, error)
	Count(ctx context.Context, filter RechargeCardFilter) (int64, error)
}
