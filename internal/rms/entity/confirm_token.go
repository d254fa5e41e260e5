package entity

import "time"

// PublicConfirmToken 匿名确认令牌（一单最多一个有效令牌，单次使用）
type PublicConfirmToken struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string     `json:"work_order_id" gorm:"size:32;not null;uniqueIndex"`
	Token       string     `json:"token" gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt      *time.Time `json:"used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (PublicConfirmToken) TableName() string {
	return "public_confirm_tokens"
}
