package model

import "time"

type RechargeCard struct {
	ID           int64      `db:"id" json:"id"`
	CardCode     string     `db:"card_code" json:"card_code"`
	Amount       int        `db:"amount" json:"amount"`
	VIPLevel     int        `db:"vip_level" json:"vip_level"`
	DurationDays int        `db:"duration_days" json:"duration_days"`
	IsUsed       bool       `db:"is_used" json:"is_used"`
	UsedAt       *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedBy       *int64     `db:"used_by" json:"used_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
