package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cost-bearing tables. Only the columns the back office reads or rewrites
// are mapped; the owning services keep the rest of each table.

// ProductModel maps products; average_cost is the cost column.
type ProductModel struct {
	BusinessScopedModel
	Name        string          `gorm:"type:varchar(200);not null"`
	AverageCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string { return "products" }

// ProductFixedCostModel maps product_fixed_costs, owned through products.
type ProductFixedCostModel struct {
	BaseModel
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name       string          `gorm:"type:varchar(200);not null;default:''"`
	CostAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductFixedCostModel) TableName() string { return "product_fixed_costs" }

// OrderReceiptModel maps order_receipts; total_cost is the cost column.
type OrderReceiptModel struct {
	BusinessScopedModel
	Number    string          `gorm:"type:varchar(50);not null;default:''"`
	TotalCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderReceiptModel) TableName() string { return "order_receipts" }

// SelledProductModel maps selled_products, owned through order_receipts.
type SelledProductModel struct {
	BaseModel
	OrderReceiptID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      *uuid.UUID      `gorm:"type:uuid"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (SelledProductModel) TableName() string { return "selled_products" }

// RecipeModel maps recipes; total_cost is the cost column.
type RecipeModel struct {
	BusinessScopedModel
	Name      string          `gorm:"type:varchar(200);not null;default:''"`
	TotalCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (RecipeModel) TableName() string { return "recipes" }

// ProductionOrderModel maps production_orders; total_cost is the cost column.
type ProductionOrderModel struct {
	BusinessScopedModel
	Name      string          `gorm:"type:varchar(200);not null;default:''"`
	TotalCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductionOrderModel) TableName() string { return "production_orders" }

// OrderProductionFixedCostModel maps order_production_fixed_costs, owned
// through production_orders.
type OrderProductionFixedCostModel struct {
	BaseModel
	ProductionOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name              string          `gorm:"type:varchar(200);not null;default:''"`
	CostAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderProductionFixedCostModel) TableName() string { return "order_production_fixed_costs" }
