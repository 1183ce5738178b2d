// Package setting models per-business configuration settings and the typed
// registry that declares how each one is parsed and which rules tie them together.
package setting

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Setting is a single persisted key/value for a business
type Setting struct {
	shared.BusinessEntity
	Key         string
	Value       string
	IsSensitive bool
}

// NewSetting creates a non-sensitive setting
func NewSetting(businessID uuid.UUID, key, value string) *Setting {
	return &Setting{
		BusinessEntity: shared.NewBusinessEntity(businessID),
		Key:            key,
		Value:          value,
	}
}

// Change is a requested or applied key/value pair
type Change struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Values is a resolved view of a business's settings keyed by setting key
type Values map[string]string

// ValuesOf indexes settings by key
func ValuesOf(settings []Setting) Values {
	v := make(Values, len(settings))
	for _, s := range settings {
		v[s.Key] = s.Value
	}
	return v
}

// Clone returns a shallow copy
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Bool reads a boolean value; missing or unparsable values read as false
func (v Values) Bool(key string) bool {
	b, err := strconv.ParseBool(v[key])
	return err == nil && b
}

// Int reads an integer value; ok is false when missing or unparsable
func (v Values) Int(key string) (int64, bool) {
	n, err := strconv.ParseInt(v[key], 10, 64)
	return n, err == nil
}

// List reads a comma separated value
func (v Values) List(key string) []string {
	return SplitList(v[key])
}

// Repository persists settings
type Repository interface {
	// FindNonSensitive returns every non-sensitive setting of the business
	FindNonSensitive(ctx context.Context, businessID uuid.UUID) ([]Setting, error)

	// BulkUpsert writes the given values keyed by (business, key) and returns the rows written
	BulkUpsert(ctx context.Context, businessID uuid.UUID, changes []Change) ([]Setting, error)

	// SeedDefaults inserts missing settings from the given definitions and
	// returns how many rows were created. Existing values are left untouched.
	SeedDefaults(ctx context.Context, businessID uuid.UUID, defs []Definition) (int, error)
}

// Cache caches the non-sensitive settings of a business
type Cache interface {
	// Get returns nil, nil on a cache miss
	Get(ctx context.Context, businessID uuid.UUID) ([]Setting, error)
	Set(ctx context.Context, businessID uuid.UUID, settings []Setting) error
	Delete(ctx context.Context, businessID uuid.UUID) error
}
