package db

import (
	"context"
	"fmt"

	"github.com/adilkhan-b/scentwatch/pkg/config"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
)

// AutoMigrate creates or updates the catalog and subscription tables.
// The schema is small enough that gorm's migrator covers it.
func AutoMigrate(ctx context.Context, client *Client, logg *logger.Logger) error {
	err := client.DB().WithContext(ctx).AutoMigrate(
		&models.Product{},
		&models.Subscription{},
		&models.WatchItem{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "schema migration complete")
	}
	return nil
}

// MaybeAutoMigrate runs AutoMigrate when the config flag allows it.
func MaybeAutoMigrate(ctx context.Context, cfg *config.Config, client *Client, logg *logger.Logger) error {
	if !cfg.DB.AutoMigrate {
		return nil
	}
	return AutoMigrate(ctx, client, logg)
}
