package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
)

// ConfigurationService is the part of the configuration service the handler uses
type ConfigurationService interface {
	ApplyConfigurationBatch(ctx context.Context, req configuration.ApplyRequest) (*configuration.ApplyResult, error)
	GetConfigurations(ctx context.Context, businessID uuid.UUID) ([]setting.Setting, error)
	SeedDefaults(ctx context.Context, businessID uuid.UUID) (int, error)
	Schema() []setting.Definition
}

// ConfigurationHandler serves the business configuration endpoints
type ConfigurationHandler struct {
	BaseHandler
	service ConfigurationService
}

// NewConfigurationHandler creates a new ConfigurationHandler
func NewConfigurationHandler(service ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: service}
}

// RegisterRoutes registers the configuration routes
func (h *ConfigurationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/business/configurations")
	g.GET("", h.List)
	g.PATCH("", h.Update)
	g.GET("/schema", h.Schema)
	g.POST("/defaults", h.SeedDefaults)
}

// List godoc
// @ID           listBusinessConfigurations
// @Summary      List business configurations
// @Description  Returns every non-sensitive configuration of the tenant
// @Tags         configurations
// @Produce      json
// @Param        X-Tenant-ID header string true "Business ID"
// @Success      200 {object} dto.Response{data=[]dto.ConfigurationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /business/configurations [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	businessID, ok := h.businessID(c)
	if !ok {
		return
	}

	settings, err := h.service.GetConfigurations(c.Request.Context(), businessID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewConfigurationResponses(settings))
}

// Update godoc
// @ID           updateBusinessConfigurations
// @Summary      Update business configurations
// @Description  Applies a batch of configuration changes atomically. Changing the
// @Description  general cost currency recalculates every stored cost.
// @Tags         configurations
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Business ID"
// @Param        request body dto.UpdateConfigurationsRequest true "Configuration changes"
// @Success      200 {object} dto.Response{data=dto.UpdateConfigurationsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /business/configurations [patch]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	businessID, ok := h.businessID(c)
	if !ok {
		return
	}

	var req dto.UpdateConfigurationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.ValidationError(c, verrs)
			return
		}
		h.Error(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		return
	}

	result, err := h.service.ApplyConfigurationBatch(c.Request.Context(), configuration.ApplyRequest{
		BusinessID: businessID,
		Actor:      middleware.GetActor(c),
		Origin:     middleware.GetOrigin(c),
		Changes:    req.ToChanges(),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewUpdateConfigurationsResponse(result))
}

// Schema godoc
// @ID           getBusinessConfigurationSchema
// @Summary      Describe editable configurations
// @Tags         configurations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.SettingDefinitionResponse}
// @Router       /business/configurations/schema [get]
func (h *ConfigurationHandler) Schema(c *gin.Context) {
	h.Success(c, dto.NewSettingDefinitionResponses(h.service.Schema()))
}

// SeedDefaultsResponse reports how many defaults were created
type SeedDefaultsResponse struct {
	Created int `json:"created"`
}

// SeedDefaults godoc
// @ID           seedBusinessConfigurations
// @Summary      Create missing default configurations
// @Tags         configurations
// @Produce      json
// @Param        X-Tenant-ID header string true "Business ID"
// @Success      200 {object} dto.Response{data=SeedDefaultsResponse}
// @Router       /business/configurations/defaults [post]
func (h *ConfigurationHandler) SeedDefaults(c *gin.Context) {
	businessID, ok := h.businessID(c)
	if !ok {
		return
	}

	created, err := h.service.SeedDefaults(c.Request.Context(), businessID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, SeedDefaultsResponse{Created: created})
}
