package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog row for a listed fragrance. The normalized name
// (trimmed, upper-cased) is the natural key; rows are never deleted.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:products_name_key"`
	SoldOut     bool      `gorm:"column:sold_out;not null;default:false"`
	ImageURL    string    `gorm:"column:image_url"`
	LastChecked time.Time `gorm:"column:last_checked"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
