package subscriptions

import (
	"context"
	"errors"

	"github.com/adilkhan-b/scentwatch/internal/catalog"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the persistence surface the service needs from the repository.
type Store interface {
	EnsureSubscription(ctx context.Context, telegramID int64) (*models.Subscription, error)
	AddWatch(ctx context.Context, subscriptionID, productID uuid.UUID) (bool, error)
	RemoveWatch(ctx context.Context, subscriptionID, productID uuid.UUID) (bool, error)
	ListWatched(ctx context.Context, subscriptionID uuid.UUID) ([]models.Product, error)
	NotifyEnabled(ctx context.Context, telegramID int64) (bool, error)
	ToggleNotify(ctx context.Context, telegramID int64) (bool, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Store   Store
	Catalog catalog.Repository
	Logger  *logger.Logger
}

// Service exposes wishlist and preference operations for the bot surface.
type Service interface {
	EnsureSubscription(ctx context.Context, telegramID int64) error
	ResolveName(ctx context.Context, input string) (string, error)
	AddToWishlist(ctx context.Context, telegramID int64, rawName string) (WishlistChange, error)
	RemoveFromWishlist(ctx context.Context, telegramID int64, rawName string) (WishlistChange, error)
	Wishlist(ctx context.Context, telegramID int64) ([]models.Product, error)
	Catalog(ctx context.Context) ([]models.Product, error)
	NotifyStatus(ctx context.Context, telegramID int64) (bool, error)
	ToggleNotify(ctx context.Context, telegramID int64) (bool, error)
}

// WishlistChange reports the outcome of an add/remove operation.
type WishlistChange struct {
	// Name is the canonical catalog name the input resolved to.
	Name string
	// Applied is false when the operation was a no-op (already present /
	// not present).
	Applied bool
}

type service struct {
	store   Store
	catalog catalog.Repository
	logg    *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repository is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		store:   params.Store,
		catalog: params.Catalog,
		logg:    params.Logger,
	}, nil
}

// EnsureSubscription lazily creates the user's record on first contact.
func (s *service) EnsureSubscription(ctx context.Context, telegramID int64) error {
	if _, err := s.store.EnsureSubscription(ctx, telegramID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "ensure subscription")
	}
	return nil
}

// ResolveName maps user input onto a canonical catalog name. The fuzzy
// lookup is kept apart from persistence so it can be swapped or tested
// independently.
func (s *service) ResolveName(ctx context.Context, input string) (string, error) {
	names, err := s.catalog.ListNames(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list catalog names")
	}
	name, ok := resolveName(input, names)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no matching fragrance")
	}
	return name, nil
}

// AddToWishlist resolves the input and adds the watch pair. Re-adding an
// already-watched product reports Applied=false instead of duplicating.
func (s *service) AddToWishlist(ctx context.Context, telegramID int64, rawName string) (WishlistChange, error) {
	name, err := s.ResolveName(ctx, rawName)
	if err != nil {
		return WishlistChange{}, err
	}

	sub, product, err := s.loadPair(ctx, telegramID, name)
	if err != nil {
		return WishlistChange{}, err
	}

	added, err := s.store.AddWatch(ctx, sub.ID, product.ID)
	if err != nil {
		return WishlistChange{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "add watch")
	}
	return WishlistChange{Name: name, Applied: added}, nil
}

// RemoveFromWishlist resolves the input and deletes the watch pair.
func (s *service) RemoveFromWishlist(ctx context.Context, telegramID int64, rawName string) (WishlistChange, error) {
	name, err := s.ResolveName(ctx, rawName)
	if err != nil {
		return WishlistChange{}, err
	}

	sub, product, err := s.loadPair(ctx, telegramID, name)
	if err != nil {
		return WishlistChange{}, err
	}

	removed, err := s.store.RemoveWatch(ctx, sub.ID, product.ID)
	if err != nil {
		return WishlistChange{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "remove watch")
	}
	return WishlistChange{Name: name, Applied: removed}, nil
}

// Wishlist returns the user's watched products.
func (s *service) Wishlist(ctx context.Context, telegramID int64) ([]models.Product, error) {
	sub, err := s.store.EnsureSubscription(ctx, telegramID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "ensure subscription")
	}
	products, err := s.store.ListWatched(ctx, sub.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list watched products")
	}
	return products, nil
}

// Catalog returns the full known catalog for the listing view.
func (s *service) Catalog(ctx context.Context) ([]models.Product, error) {
	products, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list catalog")
	}
	return products, nil
}

// NotifyStatus returns the user's notification preference.
func (s *service) NotifyStatus(ctx context.Context, telegramID int64) (bool, error) {
	enabled, err := s.store.NotifyEnabled(ctx, telegramID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read notify status")
	}
	return enabled, nil
}

// ToggleNotify flips the user's notification preference.
func (s *service) ToggleNotify(ctx context.Context, telegramID int64) (bool, error) {
	enabled, err := s.store.ToggleNotify(ctx, telegramID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "toggle notify status")
	}
	return enabled, nil
}

func (s *service) loadPair(ctx context.Context, telegramID int64, name string) (*models.Subscription, *models.Product, error) {
	sub, err := s.store.EnsureSubscription(ctx, telegramID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "ensure subscription")
	}
	product, err := s.catalog.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
	}
	return sub, product, nil
}
