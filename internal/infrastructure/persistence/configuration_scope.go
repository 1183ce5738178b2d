package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	appconfig "github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/infrastructure/locking"
)

// GormConfigurationScope implements the configuration TransactionScope using
// GORM transactions. On PostgreSQL the transaction takes a transaction-scoped
// advisory lock on the business so batches from other processes queue behind it.
type GormConfigurationScope struct {
	db *gorm.DB
}

// NewGormConfigurationScope creates a new GormConfigurationScope.
func NewGormConfigurationScope(db *gorm.DB) *GormConfigurationScope {
	return &GormConfigurationScope{db: db}
}

// Execute runs fn within a locked database transaction.
func (s *GormConfigurationScope) Execute(ctx context.Context, businessID uuid.UUID, fn func(repos appconfig.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) {
			key := locking.AdvisoryKey(appconfig.LockName(businessID))
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
				return fmt.Errorf("failed to acquire advisory lock: %w", err)
			}
		}
		return fn(&gormConfigurationRepositories{tx: tx})
	})
}

type gormConfigurationRepositories struct {
	tx *gorm.DB
}

func (r *gormConfigurationRepositories) Settings() setting.Repository {
	return NewGormSettingRepository(r.tx)
}

func (r *gormConfigurationRepositories) Rates() currency.RateRepository {
	return NewGormRateRepository(r.tx)
}

func (r *gormConfigurationRepositories) Collections() []costing.Collection {
	return NewCostCollections(r.tx)
}

// Ensure GormConfigurationScope implements TransactionScope
var _ appconfig.TransactionScope = (*GormConfigurationScope)(nil)

// Ensure gormConfigurationRepositories implements TransactionalRepositories
var _ appconfig.TransactionalRepositories = (*gormConfigurationRepositories)(nil)
