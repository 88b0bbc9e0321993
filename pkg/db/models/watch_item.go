package models

import (
	"time"

	"github.com/google/uuid"
)

// WatchItem links a subscription to a watched product. The pair is unique;
// re-adding an existing watch is a no-op at the repository layer.
type WatchItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SubscriptionID uuid.UUID `gorm:"column:subscription_id;type:uuid;not null;index:watch_items_subscription_id_idx;uniqueIndex:watch_items_subscription_product_key"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:watch_items_product_id_idx;uniqueIndex:watch_items_subscription_product_key"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
