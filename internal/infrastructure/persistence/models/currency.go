package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CurrencyRateModel is the persistence model for a business currency rate.
// Rows are soft deleted; conversions read them unscoped.
type CurrencyRateModel struct {
	BusinessScopedModel
	Code         string          `gorm:"type:varchar(10);not null"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	IsMain       bool            `gorm:"not null;default:false"`
	IsActive     bool            `gorm:"not null;default:true"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"`
}

// TableName returns the table name for GORM
func (CurrencyRateModel) TableName() string {
	return "currency_rates"
}

// ToDomain converts the persistence model to a domain Rate.
func (m *CurrencyRateModel) ToDomain() currency.Rate {
	r := currency.Rate{
		BusinessEntity: m.BusinessScopedModel.ToDomain(),
		Code:           m.Code,
		ExchangeRate:   m.ExchangeRate,
		IsMain:         m.IsMain,
		IsActive:       m.IsActive,
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		r.DeletedAt = &t
	}
	return r
}

// CurrencyRateModelFromDomain creates a persistence model from a domain Rate.
func CurrencyRateModelFromDomain(r *currency.Rate) *CurrencyRateModel {
	m := &CurrencyRateModel{
		Code:         r.Code,
		ExchangeRate: r.ExchangeRate,
		IsMain:       r.IsMain,
		IsActive:     r.IsActive,
	}
	m.FromDomainBusinessEntity(r.BusinessEntity)
	if r.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: r.DeletedAt.UTC().Truncate(time.Microsecond), Valid: true}
	}
	return m
}
