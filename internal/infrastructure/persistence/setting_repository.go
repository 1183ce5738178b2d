package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
)

// GormSettingRepository implements setting.Repository using GORM
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// FindNonSensitive returns every non-sensitive setting of the business ordered by key
func (r *GormSettingRepository) FindNonSensitive(ctx context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	var rows []models.ConfigurationModel
	err := r.db.WithContext(ctx).
		Where(map[string]any{"business_id": businessID, "is_sensitive": false}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	settings := make([]setting.Setting, len(rows))
	for i := range rows {
		settings[i] = rows[i].ToDomain()
	}
	return settings, nil
}

// BulkUpsert writes every change in one statement keyed by (business_id, key)
// and returns the stored rows in the order of changes.
func (r *GormSettingRepository) BulkUpsert(ctx context.Context, businessID uuid.UUID, changes []setting.Change) ([]setting.Setting, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	now := time.Now()
	rows := make([]models.ConfigurationModel, len(changes))
	keys := make([]string, len(changes))
	for i, c := range changes {
		rows[i] = models.ConfigurationModel{
			BaseModel:  models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BusinessID: businessID,
			Key:        c.Key,
			Value:      c.Value,
		}
		keys[i] = c.Key
	}

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return nil, err
	}

	var stored []models.ConfigurationModel
	if err := db.Where(map[string]any{"business_id": businessID, "key": keys}).Find(&stored).Error; err != nil {
		return nil, err
	}
	byKey := make(map[string]setting.Setting, len(stored))
	for i := range stored {
		byKey[stored[i].Key] = stored[i].ToDomain()
	}

	written := make([]setting.Setting, 0, len(changes))
	for _, c := range changes {
		if s, ok := byKey[c.Key]; ok {
			written = append(written, s)
		}
	}
	return written, nil
}

// SeedDefaults inserts the definitions missing for the business and leaves
// existing rows untouched.
func (r *GormSettingRepository) SeedDefaults(ctx context.Context, businessID uuid.UUID, defs []setting.Definition) (int, error) {
	if len(defs) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]models.ConfigurationModel, len(defs))
	for i, d := range defs {
		rows[i] = models.ConfigurationModel{
			BaseModel:   models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BusinessID:  businessID,
			Key:         d.Key,
			Value:       d.Default,
			IsSensitive: d.Sensitive,
		}
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "key"}},
		DoNothing: true,
	}).Create(&rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// Ensure GormSettingRepository implements setting.Repository
var _ setting.Repository = (*GormSettingRepository)(nil)
