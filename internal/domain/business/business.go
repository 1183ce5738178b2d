// Package business holds the tenant record and the snapshot broadcast to
// connected clients when a business changes.
package business

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
)

// Status represents the status of a business
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Business is a tenant of the back office
type Business struct {
	shared.BaseEntity
	Code     string
	Name     string
	Status   Status
	Timezone string
	LogoURL  string
}

// NewBusiness creates an active business
func NewBusiness(code, name string) (*Business, error) {
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("business code cannot be empty")
	}
	if name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("business name cannot be empty")
	}
	return &Business{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		Status:     StatusActive,
		Timezone:   "America/Havana",
	}, nil
}

// IsActive returns true if the business is active
func (b *Business) IsActive() bool {
	return b.Status == StatusActive
}

// Repository reads businesses
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Business, error)
	Save(ctx context.Context, b *Business) error
}

// Snapshot is the view of a business pushed to live clients
type Snapshot struct {
	ID             uuid.UUID         `json:"id"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	Status         Status            `json:"status"`
	Timezone       string            `json:"timezone"`
	LogoURL        string            `json:"logo_url,omitempty"`
	Configurations map[string]string `json:"configurations"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewSnapshot builds a snapshot from a business and its non-sensitive settings
func NewSnapshot(b *Business, settings []setting.Setting) Snapshot {
	configs := make(map[string]string, len(settings))
	for _, s := range settings {
		if s.IsSensitive {
			continue
		}
		configs[s.Key] = s.Value
	}
	return Snapshot{
		ID:             b.ID,
		Code:           b.Code,
		Name:           b.Name,
		Status:         b.Status,
		Timezone:       b.Timezone,
		LogoURL:        b.LogoURL,
		Configurations: configs,
		UpdatedAt:      b.UpdatedAt,
	}
}
