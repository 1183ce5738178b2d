package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
)

// GormRateRepository implements currency.RateRepository using GORM
type GormRateRepository struct {
	db *gorm.DB
}

// NewGormRateRepository creates a new GormRateRepository
func NewGormRateRepository(db *gorm.DB) *GormRateRepository {
	return &GormRateRepository{db: db}
}

// FindAllIncludingInactive returns every rate of the business, inactive and
// soft-deleted rows included.
func (r *GormRateRepository) FindAllIncludingInactive(ctx context.Context, businessID uuid.UUID) ([]currency.Rate, error) {
	var rows []models.CurrencyRateModel
	err := r.db.WithContext(ctx).Unscoped().
		Where("business_id = ?", businessID).
		Order("code").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	rates := make([]currency.Rate, len(rows))
	for i := range rows {
		rates[i] = rows[i].ToDomain()
	}
	return rates, nil
}

// Save inserts or updates a rate
func (r *GormRateRepository) Save(ctx context.Context, rate *currency.Rate) error {
	return r.db.WithContext(ctx).Unscoped().Save(models.CurrencyRateModelFromDomain(rate)).Error
}

// Ensure GormRateRepository implements currency.RateRepository
var _ currency.RateRepository = (*GormRateRepository)(nil)
