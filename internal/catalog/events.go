package catalog

import "github.com/adilkhan-b/scentwatch/pkg/db/models"

// ChangeKind classifies the outcome of reconciling one parsed product.
type ChangeKind string

const (
	ChangeUnchanged    ChangeKind = "unchanged"
	ChangeRestocked    ChangeKind = "restocked"
	ChangeNewlySoldOut ChangeKind = "newly_sold_out"
	ChangeNewProduct   ChangeKind = "new_product"
)

// ChangeEvent is produced per product per reconciliation run. Events are
// ephemeral; only restocks and new products trigger notifications.
type ChangeEvent struct {
	Kind    ChangeKind
	Product models.Product
}

// Notifies reports whether this event should reach the dispatcher.
func (e ChangeEvent) Notifies() bool {
	return e.Kind == ChangeRestocked || e.Kind == ChangeNewProduct
}
