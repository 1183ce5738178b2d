// Package middleware provides HTTP middleware for the back office API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

// Request headers identifying the tenant and the acting user.
// The gateway in front of the service authenticates the user and sets them.
const (
	TenantHeaderKey    = "X-Tenant-ID"
	UserIDHeaderKey    = "X-User-ID"
	UserNameHeaderKey  = "X-User-Name"
	UserEmailHeaderKey = "X-User-Email"
	OriginHeaderKey    = "X-Origin"
)

// Gin context keys
const (
	BusinessIDKey = "business_id"
	ActorKey      = "actor"
	OriginKey     = "origin"
)

// MaxHeaderValueLength caps the length of identity header values
const MaxHeaderValueLength = 200

// TenantConfig holds configuration for the tenant middleware
type TenantConfig struct {
	// SkipPaths are paths that don't require tenant context (e.g., health check)
	SkipPaths []string
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// Tenant resolves the business and actor of the request with default configuration
func Tenant() gin.HandlerFunc {
	return TenantWithConfig(DefaultTenantConfig())
}

// TenantWithConfig resolves the business from X-Tenant-ID and the actor from
// the user headers. Requests without a valid business ID are rejected.
func TenantWithConfig(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(TenantHeaderKey))
		if raw == "" {
			abort(c, dto.ErrCodeInvalidInput, "Tenant identification required")
			return
		}
		businessID, err := uuid.Parse(raw)
		if err != nil || businessID == uuid.Nil {
			abort(c, dto.ErrCodeInvalidInput, "Invalid tenant ID format")
			return
		}

		actor := configuration.Actor{
			ID:    headerValue(c, UserIDHeaderKey),
			Name:  headerValue(c, UserNameHeaderKey),
			Email: headerValue(c, UserEmailHeaderKey),
		}

		c.Set(BusinessIDKey, businessID)
		c.Set(ActorKey, actor)
		c.Set(OriginKey, headerValue(c, OriginHeaderKey))

		ctx := logger.WithBusinessID(c.Request.Context(), businessID.String())
		if actor.ID != "" {
			ctx = logger.WithActorID(ctx, actor.ID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetBusinessID returns the business resolved for the request
func GetBusinessID(c *gin.Context) (uuid.UUID, bool) {
	if v, ok := c.Get(BusinessIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetActor returns the actor resolved for the request
func GetActor(c *gin.Context) configuration.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if a, ok := v.(configuration.Actor); ok {
			return a
		}
	}
	return configuration.Actor{}
}

// GetOrigin returns the origin tag sent by the client
func GetOrigin(c *gin.Context) string {
	return c.GetString(OriginKey)
}

func headerValue(c *gin.Context, key string) string {
	v := strings.TrimSpace(c.GetHeader(key))
	if len(v) > MaxHeaderValueLength {
		v = v[:MaxHeaderValueLength]
	}
	return v
}

func abort(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, message, c.Writer.Header().Get(logger.RequestIDHeader)))
}
