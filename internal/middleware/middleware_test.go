package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
}

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func newGuardedRouter(role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	validator := staticValidator{claims: &models.JWTClaims{UserID: "u-1", Role: role}}
	router.DELETE("/schedule", JWT(validator), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/schedule", nil)
	newGuardedRouter(models.RoleAdmin).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/schedule", nil)
	req.Header.Set("Authorization", "Bearer bad")
	newGuardedRouter(models.RoleAdmin).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACForbidsOtherRoles(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/schedule", nil)
	req.Header.Set("Authorization", "Bearer good")
	newGuardedRouter(models.RoleViewer).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACAllowsAdmin(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/schedule", nil)
	req.Header.Set("Authorization", "bearer good")
	newGuardedRouter(models.RoleAdmin).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var meta map[string]interface{}
	router.GET("/schedule", WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/schedule", nil)
	router.ServeHTTP(w, req)

	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, processingTimeMs)
}
