package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is one Telegram user's record, created lazily on first
// interaction with the bot.
type Subscription struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TelegramID    int64     `gorm:"column:telegram_id;not null;uniqueIndex:subscriptions_telegram_id_key"`
	NotifyEnabled bool      `gorm:"column:notify_enabled;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
