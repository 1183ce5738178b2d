package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erp/backoffice/internal/domain/costing"
)

// costTable describes where the cost column of one collection lives and how
// its rows are tied to a business. Tables without a business_id column are
// scoped through their parent.
type costTable struct {
	name        string
	table       string
	column      string
	parentTable string
	parentKey   string
}

var costTables = []costTable{
	{name: costing.CollectionProduct, table: "products", column: "average_cost"},
	{name: costing.CollectionSelledProduct, table: "selled_products", column: "total_cost", parentTable: "order_receipts", parentKey: "order_receipt_id"},
	{name: costing.CollectionOrderReceipt, table: "order_receipts", column: "total_cost"},
	{name: costing.CollectionRecipe, table: "recipes", column: "total_cost"},
	{name: costing.CollectionProductFixedCost, table: "product_fixed_costs", column: "cost_amount", parentTable: "products", parentKey: "product_id"},
	{name: costing.CollectionProductionOrder, table: "production_orders", column: "total_cost"},
	{name: costing.CollectionOrderProductionFixedCost, table: "order_production_fixed_costs", column: "cost_amount", parentTable: "production_orders", parentKey: "production_order_id"},
}

// GormCostCollection implements costing.Collection for one cost table
type GormCostCollection struct {
	db  *gorm.DB
	def costTable
}

// NewCostCollections returns the seven cost collections bound to db, in
// recalculation order.
func NewCostCollections(db *gorm.DB) []costing.Collection {
	collections := make([]costing.Collection, len(costTables))
	for i, def := range costTables {
		collections[i] = &GormCostCollection{db: db, def: def}
	}
	return collections
}

// Name returns the collection name
func (c *GormCostCollection) Name() string {
	return c.def.name
}

type costRow struct {
	ID     uuid.UUID
	Amount decimal.Decimal
}

// FindByBusiness returns the cost of every row owned by the business ordered by id
func (c *GormCostCollection) FindByBusiness(ctx context.Context, businessID uuid.UUID) ([]costing.Record, error) {
	var query string
	if c.def.parentTable == "" {
		query = fmt.Sprintf(
			"SELECT id, %s AS amount FROM %s WHERE business_id = ? ORDER BY id",
			c.def.column, c.def.table)
	} else {
		query = fmt.Sprintf(
			"SELECT c.id, c.%s AS amount FROM %s c JOIN %s p ON p.id = c.%s WHERE p.business_id = ? ORDER BY c.id",
			c.def.column, c.def.table, c.def.parentTable, c.def.parentKey)
	}

	var rows []costRow
	if err := c.db.WithContext(ctx).Raw(query, businessID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", c.def.table, err)
	}

	records := make([]costing.Record, len(rows))
	for i, r := range rows {
		records[i] = costing.Record{ID: r.ID, Amount: r.Amount}
	}
	return records, nil
}

// UpdateAmounts rewrites the cost column of the given rows in one statement
func (c *GormCostCollection) UpdateAmounts(ctx context.Context, records []costing.Record) error {
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(records)*2+1)
	ids := make([]uuid.UUID, len(records))

	fmt.Fprintf(&sb, "UPDATE %s SET %s = CASE id", c.def.table, c.def.column)
	for i, r := range records {
		sb.WriteString(" WHEN ? THEN CAST(? AS NUMERIC)")
		args = append(args, r.ID, r.Amount)
		ids[i] = r.ID
	}
	fmt.Fprintf(&sb, " ELSE %s END WHERE id IN ?", c.def.column)
	args = append(args, ids)

	result := c.db.WithContext(ctx).Exec(sb.String(), args...)
	if result.Error != nil {
		return fmt.Errorf("update %s: %w", c.def.table, result.Error)
	}
	return nil
}

// Ensure GormCostCollection implements costing.Collection
var _ costing.Collection = (*GormCostCollection)(nil)
