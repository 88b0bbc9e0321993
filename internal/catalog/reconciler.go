package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/adilkhan-b/scentwatch/internal/scrape"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconciler diffs a parsed listing against the persisted catalog.
type Reconciler struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewReconciler builds a reconciler. now may be nil, in which case the
// wall clock is used.
func NewReconciler(repo Repository, logg *logger.Logger, now func() time.Time) (*Reconciler, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{repo: repo, logg: logg, now: now}, nil
}

// Reconcile classifies every parsed product against the catalog and
// persists the updated state as a single transaction. Products known to
// the catalog but absent from the parse are left untouched.
func (r *Reconciler) Reconcile(ctx context.Context, parsed []scrape.ParsedProduct) ([]ChangeEvent, error) {
	events := make([]ChangeEvent, 0, len(parsed))

	err := r.repo.WithTx(ctx, func(tx Repository) error {
		for _, item := range parsed {
			event, err := r.reconcileOne(ctx, tx, item)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reconcile catalog")
	}

	return events, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, tx Repository, item scrape.ParsedProduct) (ChangeEvent, error) {
	existing, err := tx.FindByName(ctx, item.Name)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ChangeEvent{}, err
		}

		product := models.Product{
			ID:          uuid.New(),
			Name:        item.Name,
			SoldOut:     item.SoldOut,
			ImageURL:    item.ImageURL,
			LastChecked: r.now(),
		}
		if err := tx.Create(ctx, &product); err != nil {
			return ChangeEvent{}, err
		}
		r.logg.Info(r.logg.WithProduct(ctx, product.Name), "new product added to catalog")
		return ChangeEvent{Kind: ChangeNewProduct, Product: product}, nil
	}

	if existing.SoldOut == item.SoldOut {
		// Source timestamps only on change; an unchanged sighting writes nothing.
		return ChangeEvent{Kind: ChangeUnchanged, Product: *existing}, nil
	}

	existing.SoldOut = item.SoldOut
	existing.LastChecked = r.now()
	if item.ImageURL != "" {
		existing.ImageURL = item.ImageURL
	}
	if err := tx.Save(ctx, existing); err != nil {
		return ChangeEvent{}, err
	}

	kind := ChangeRestocked
	if item.SoldOut {
		kind = ChangeNewlySoldOut
	}
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"product":  existing.Name,
		"sold_out": existing.SoldOut,
	}), "product availability changed")

	return ChangeEvent{Kind: kind, Product: *existing}, nil
}
