package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRouterTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_setup_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.MigrateWith(db))
	models.DB = db

	mr := miniredis.RunT(t)
	cache.UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = cache.Close() })

	cfg := config.Defaults()
	cfg.Queue.Enabled = false
	container, err := provider.NewContainer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })
	return SetupRouter(cfg, container), container
}

func TestHealthz(t *testing.T) {
	r, _ := setupRouterTest(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","redis":"ok"}`, w.Body.String())
}

func TestUserRoutesRequireToken(t *testing.T) {
	r, container := setupRouterTest(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/user-coupons/1/receive", nil))
	assert.Equal(t, 401, decodeStatusCode(t, w.Body.Bytes()))

	token, _, err := container.AuthService.GenerateUserJWT(21)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/user-coupons/1/receive", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			Reason string `json:"reason"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 400, body.StatusCode)
	assert.Equal(t, "not_started", body.Data.Reason)
}

func TestAdminPermissionCatalogListsAdminRoutes(t *testing.T) {
	r, _ := setupRouterTest(t)

	catalog := buildAdminPermissionCatalog(r)
	permissions := make(map[string]string, len(catalog))
	for _, item := range catalog {
		permissions[item.Permission] = item.Module
	}
	assert.Equal(t, "coupons", permissions["PUT:/admin/coupons/:id/pause"])
	assert.Equal(t, "codes", permissions["PUT:/admin/codes/:serial/status"])
	assert.Equal(t, "authz", permissions["POST:/admin/authz/users/:id/revoke-tokens"])
	_, public := permissions["GET:/public/coupons"]
	assert.False(t, public)
}
