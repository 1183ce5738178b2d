package dto

import (
	"time"

	"github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/setting"
)

// ConfigurationChange is one requested key/value pair
type ConfigurationChange struct {
	Key   string `json:"key" binding:"required,max=100"`
	Value string `json:"value"`
}

// UpdateConfigurationsRequest is the body of a configuration batch
type UpdateConfigurationsRequest struct {
	Configurations []ConfigurationChange `json:"configs" binding:"required,min=1,max=500,dive"`
}

// ToChanges converts the request into domain changes
func (r UpdateConfigurationsRequest) ToChanges() []setting.Change {
	changes := make([]setting.Change, len(r.Configurations))
	for i, c := range r.Configurations {
		changes[i] = setting.Change{Key: c.Key, Value: c.Value}
	}
	return changes
}

// ConfigurationResponse is a stored setting
type ConfigurationResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConfigurationResponses converts stored settings
func NewConfigurationResponses(settings []setting.Setting) []ConfigurationResponse {
	out := make([]ConfigurationResponse, len(settings))
	for i, s := range settings {
		out[i] = ConfigurationResponse{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
	}
	return out
}

// UpdateConfigurationsResponse describes a committed batch
type UpdateConfigurationsResponse struct {
	Configurations []ConfigurationChange `json:"configurations"`
	Recalculation  *RecalculationSummary `json:"recalculation,omitempty"`
}

// RecalculationSummary reports a cost currency change
type RecalculationSummary struct {
	From        string                     `json:"from"`
	To          string                     `json:"to"`
	Policy      string                     `json:"policy"`
	RowsWritten int                        `json:"rows_written"`
	DurationMS  int64                      `json:"duration_ms"`
	Collections []costing.CollectionReport `json:"collections"`
}

// NewUpdateConfigurationsResponse converts an apply result
func NewUpdateConfigurationsResponse(result *configuration.ApplyResult) UpdateConfigurationsResponse {
	resp := UpdateConfigurationsResponse{
		Configurations: make([]ConfigurationChange, len(result.Written)),
	}
	for i, c := range result.Written {
		resp.Configurations[i] = ConfigurationChange{Key: c.Key, Value: c.Value}
	}
	if r := result.Recalculation; r != nil {
		resp.Recalculation = &RecalculationSummary{
			From:        r.From,
			To:          r.To,
			Policy:      r.Policy,
			RowsWritten: r.TotalRows(),
			DurationMS:  r.Duration.Milliseconds(),
			Collections: r.Collections,
		}
	}
	return resp
}

// SettingDefinitionResponse describes an editable setting
type SettingDefinitionResponse struct {
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	Default     string   `json:"default"`
	Nullable    bool     `json:"nullable"`
	Options     []string `json:"options,omitempty"`
	Description string   `json:"description,omitempty"`
}

// NewSettingDefinitionResponses converts registry definitions
func NewSettingDefinitionResponses(defs []setting.Definition) []SettingDefinitionResponse {
	out := make([]SettingDefinitionResponse, len(defs))
	for i, d := range defs {
		out[i] = SettingDefinitionResponse{
			Key:         d.Key,
			Type:        string(d.Type),
			Default:     d.Default,
			Nullable:    d.Nullable,
			Options:     d.Options,
			Description: d.Description,
		}
	}
	return out
}
