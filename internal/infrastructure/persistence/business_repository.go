package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/backoffice/internal/domain/business"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
)

// GormBusinessRepository implements business.Repository using GORM
type GormBusinessRepository struct {
	db *gorm.DB
}

// NewGormBusinessRepository creates a new GormBusinessRepository
func NewGormBusinessRepository(db *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: db}
}

// FindByID finds a business by its ID
func (r *GormBusinessRepository) FindByID(ctx context.Context, id uuid.UUID) (*business.Business, error) {
	var model models.BusinessModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage("business not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a business
func (r *GormBusinessRepository) Save(ctx context.Context, b *business.Business) error {
	return r.db.WithContext(ctx).Save(models.BusinessModelFromDomain(b)).Error
}

// Ensure GormBusinessRepository implements business.Repository
var _ business.Repository = (*GormBusinessRepository)(nil)
