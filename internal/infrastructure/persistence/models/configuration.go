package models

import (
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ConfigurationModel is one persisted setting of a business.
// The key is unique per business.
type ConfigurationModel struct {
	BaseModel
	BusinessID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_business_configurations_key,priority:1"`
	Key         string    `gorm:"type:varchar(120);not null;uniqueIndex:idx_business_configurations_key,priority:2"`
	Value       string    `gorm:"type:text;not null;default:''"`
	IsSensitive bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ConfigurationModel) TableName() string {
	return "business_configurations"
}

// ToDomain converts the persistence model to a domain Setting.
func (m *ConfigurationModel) ToDomain() setting.Setting {
	return setting.Setting{
		BusinessEntity: shared.BusinessEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			BusinessID: m.BusinessID,
		},
		Key:         m.Key,
		Value:       m.Value,
		IsSensitive: m.IsSensitive,
	}
}

// ConfigurationModelFromDomain creates a persistence model from a domain Setting.
func ConfigurationModelFromDomain(s *setting.Setting) *ConfigurationModel {
	m := &ConfigurationModel{
		BusinessID:  s.BusinessID,
		Key:         s.Key,
		Value:       s.Value,
		IsSensitive: s.IsSensitive,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
