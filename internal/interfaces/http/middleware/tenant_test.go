package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

func tenantRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Tenant())
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/test", func(c *gin.Context) {
		businessID, _ := GetBusinessID(c)
		c.JSON(http.StatusOK, gin.H{
			"business_id":     businessID.String(),
			"actor":           GetActor(c),
			"origin":          GetOrigin(c),
			"log_business_id": logger.GetBusinessID(c.Request.Context()),
			"log_actor_id":    logger.GetActorID(c.Request.Context()),
		})
	})
	return router
}

func TestTenant_ResolvesBusinessAndActor(t *testing.T) {
	router := tenantRouter()
	businessID := uuid.New()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(TenantHeaderKey, businessID.String())
	req.Header.Set(UserIDHeaderKey, "user-9")
	req.Header.Set(UserNameHeaderKey, " Ana ")
	req.Header.Set(UserEmailHeaderKey, "ana@example.test")
	req.Header.Set(OriginHeaderKey, "pos")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		BusinessID    string              `json:"business_id"`
		Actor         configuration.Actor `json:"actor"`
		Origin        string              `json:"origin"`
		LogBusinessID string              `json:"log_business_id"`
		LogActorID    string              `json:"log_actor_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, businessID.String(), body.BusinessID)
	assert.Equal(t, configuration.Actor{ID: "user-9", Name: "Ana", Email: "ana@example.test"}, body.Actor)
	assert.Equal(t, "pos", body.Origin)
	assert.Equal(t, businessID.String(), body.LogBusinessID)
	assert.Equal(t, "user-9", body.LogActorID)
}

func TestTenant_RejectsMissingOrInvalidTenant(t *testing.T) {
	router := tenantRouter()

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not a uuid", "tenant-1"},
		{"nil uuid", uuid.Nil.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(TenantHeaderKey, tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
		})
	}
}

func TestTenant_SkipsHealthPaths(t *testing.T) {
	router := tenantRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenant_TruncatesLongHeaders(t *testing.T) {
	router := tenantRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(TenantHeaderKey, uuid.NewString())
	req.Header.Set(UserNameHeaderKey, strings.Repeat("x", 500))
	router.ServeHTTP(w, req)

	var body struct {
		Actor configuration.Actor `json:"actor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Actor.Name, MaxHeaderValueLength)
}

func TestGetters_WithoutTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetBusinessID(c)
	assert.False(t, ok)
	assert.Equal(t, configuration.Actor{}, GetActor(c))
	assert.Empty(t, GetOrigin(c))
}
