package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// BusinessScopedModel adds the owning business to BaseModel.
type BusinessScopedModel struct {
	BaseModel
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// ToDomain converts BusinessScopedModel to domain BusinessEntity
func (m *BusinessScopedModel) ToDomain() shared.BusinessEntity {
	return shared.BusinessEntity{
		BaseEntity: m.BaseModel.ToDomain(),
		BusinessID: m.BusinessID,
	}
}

// FromDomainBusinessEntity populates BusinessScopedModel from domain BusinessEntity
func (m *BusinessScopedModel) FromDomainBusinessEntity(e shared.BusinessEntity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.BusinessID = e.BusinessID
}

// All returns every model in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&BusinessModel{},
		&ConfigurationModel{},
		&CurrencyRateModel{},
		&ProductModel{},
		&ProductFixedCostModel{},
		&OrderReceiptModel{},
		&SelledProductModel{},
		&RecipeModel{},
		&ProductionOrderModel{},
		&OrderProductionFixedCostModel{},
	}
}
