package catalog

import (
	"context"

	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	"gorm.io/gorm"
)

// Repository is the catalog persistence surface consumed by the reconciler
// and the listing handlers.
type Repository interface {
	// WithTx runs fn against a transaction-bound repository; the whole
	// cycle commits or rolls back as one unit.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	FindByName(ctx context.Context, name string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	ListNames(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]models.Product, error)
}

// GormRepository implements Repository on a GORM connection.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// WithTx wraps fn in a gorm transaction, rolling back on error.
func (r *GormRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

// FindByName looks a product up by its normalized name.
func (r *GormRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new catalog row.
func (r *GormRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save persists changed fields of an existing row.
func (r *GormRepository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// ListNames returns every catalog product name.
func (r *GormRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Order("name ASC").
		Pluck("name", &names).
		Error
	return names, err
}

// ListAll returns the full catalog ordered by name.
func (r *GormRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&products).
		Error
	return products, err
}
