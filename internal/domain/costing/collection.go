// Package costing rewrites the cost fields of every cost-bearing collection
// of a business when its cost currency changes.
package costing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cost-bearing collection names
const (
	CollectionProduct                  = "product.average_cost"
	CollectionSelledProduct            = "selled_product.total_cost"
	CollectionOrderReceipt             = "order_receipt.total_cost"
	CollectionRecipe                   = "recipe.total_cost"
	CollectionProductFixedCost         = "product_fixed_cost.cost_amount"
	CollectionProductionOrder          = "production_order.total_cost"
	CollectionOrderProductionFixedCost = "order_production_fixed_cost.cost_amount"
)

// AllCollections lists the cost-bearing collections in recalculation order
func AllCollections() []string {
	return []string{
		CollectionProduct,
		CollectionSelledProduct,
		CollectionOrderReceipt,
		CollectionRecipe,
		CollectionProductFixedCost,
		CollectionProductionOrder,
		CollectionOrderProductionFixedCost,
	}
}

// Record is the cost amount of a single row
type Record struct {
	ID     uuid.UUID
	Amount decimal.Decimal
}

// Collection reads and writes the cost field of one entity collection.
// Implementations are bound to the caller's transaction.
type Collection interface {
	Name() string

	// FindByBusiness returns the cost of every row owned by the business,
	// directly or through its parent row.
	FindByBusiness(ctx context.Context, businessID uuid.UUID) ([]Record, error)

	// UpdateAmounts writes the given amounts keyed by row id
	UpdateAmounts(ctx context.Context, records []Record) error
}
