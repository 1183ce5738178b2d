package models

import (
	"github.com/erp/backoffice/internal/domain/business"
)

// BusinessModel is the persistence model for a tenant business.
type BusinessModel struct {
	BaseModel
	Code     string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string          `gorm:"type:varchar(200);not null"`
	Status   business.Status `gorm:"type:varchar(20);not null;default:'active'"`
	Timezone string          `gorm:"type:varchar(64);not null;default:'America/Havana'"`
	LogoURL  string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BusinessModel) TableName() string {
	return "businesses"
}

// ToDomain converts the persistence model to a domain Business.
func (m *BusinessModel) ToDomain() *business.Business {
	return &business.Business{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Status:     m.Status,
		Timezone:   m.Timezone,
		LogoURL:    m.LogoURL,
	}
}

// BusinessModelFromDomain creates a persistence model from a domain Business.
func BusinessModelFromDomain(b *business.Business) *BusinessModel {
	m := &BusinessModel{
		Code:     b.Code,
		Name:     b.Name,
		Status:   b.Status,
		Timezone: b.Timezone,
		LogoURL:  b.LogoURL,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}
