package subscriptions

import (
	"context"
	"errors"

	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository encapsulates subscription and watch persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscription repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSubscription returns the subscription for a Telegram user, creating
// it on first contact.
func (r *Repository) EnsureSubscription(ctx context.Context, telegramID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = models.Subscription{
		ID:            uuid.New(),
		TelegramID:    telegramID,
		NotifyEnabled: true,
	}
	if createErr := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&sub).Error; createErr != nil {
		return nil, createErr
	}
	// Re-read in case a concurrent handler won the insert race.
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// AddWatch inserts a watch pair, ignoring duplicates. The returned flag is
// false when the pair already existed.
func (r *Repository) AddWatch(ctx context.Context, subscriptionID, productID uuid.UUID) (bool, error) {
	if subscriptionID == uuid.Nil || productID == uuid.Nil {
		return false, gorm.ErrInvalidValue
	}

	item := models.WatchItem{
		ID:             uuid.New(),
		SubscriptionID: subscriptionID,
		ProductID:      productID,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&item)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RemoveWatch deletes the watch pair if it exists.
func (r *Repository) RemoveWatch(ctx context.Context, subscriptionID, productID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("subscription_id = ? AND product_id = ?", subscriptionID, productID).
		Delete(&models.WatchItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListWatched returns the products a subscription watches, ordered by name.
func (r *Repository) ListWatched(ctx context.Context, subscriptionID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Table("watch_items wi").
		Select("p.*").
		Joins("JOIN products p ON p.id = wi.product_id").
		Where("wi.subscription_id = ?", subscriptionID).
		Order("p.name ASC").
		Scan(&products).
		Error
	return products, err
}

// Watchers returns the Telegram IDs of opted-in users watching a product.
func (r *Repository) Watchers(ctx context.Context, productID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("watch_items wi").
		Joins("JOIN subscriptions s ON s.id = wi.subscription_id").
		Where("wi.product_id = ? AND s.notify_enabled = ?", productID, true).
		Pluck("s.telegram_id", &ids).
		Error
	return ids, err
}

// AllOptedIn returns the Telegram IDs of every user with notifications on.
func (r *Repository) AllOptedIn(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("notify_enabled = ?", true).
		Pluck("telegram_id", &ids).
		Error
	return ids, err
}

// AllUsers returns every known Telegram ID regardless of preference.
func (r *Repository) AllUsers(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Pluck("telegram_id", &ids).
		Error
	return ids, err
}

// NotifyEnabled returns the notification preference for a Telegram user.
func (r *Repository) NotifyEnabled(ctx context.Context, telegramID int64) (bool, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&sub).Error; err != nil {
		return false, err
	}
	return sub.NotifyEnabled, nil
}

// ToggleNotify flips the notification preference and returns the new value.
func (r *Repository) ToggleNotify(ctx context.Context, telegramID int64) (bool, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&sub).Error; err != nil {
		return false, err
	}
	sub.NotifyEnabled = !sub.NotifyEnabled
	if err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("telegram_id = ?", telegramID).
		Update("notify_enabled", sub.NotifyEnabled).
		Error; err != nil {
		return false, err
	}
	return sub.NotifyEnabled, nil
}
