package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
)

// SettingsKey returns the cache key holding the settings of a business
func SettingsKey(businessID uuid.UUID) string {
	return "business:" + businessID.String() + ":configurations"
}

type cachedSetting struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	IsSensitive bool      `json:"is_sensitive,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func encodeSettings(settings []setting.Setting) ([]byte, error) {
	entries := make([]cachedSetting, len(settings))
	for i, s := range settings {
		entries[i] = cachedSetting{
			ID:          s.ID,
			BusinessID:  s.BusinessID,
			Key:         s.Key,
			Value:       s.Value,
			IsSensitive: s.IsSensitive,
			CreatedAt:   s.CreatedAt,
			UpdatedAt:   s.UpdatedAt,
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return data, nil
}

func decodeSettings(data []byte) ([]setting.Setting, error) {
	var entries []cachedSetting
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	settings := make([]setting.Setting, len(entries))
	for i, e := range entries {
		settings[i] = setting.Setting{
			BusinessEntity: shared.BusinessEntity{
				BaseEntity: shared.BaseEntity{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt},
				BusinessID: e.BusinessID,
			},
			Key:         e.Key,
			Value:       e.Value,
			IsSensitive: e.IsSensitive,
		}
	}
	return settings, nil
}
