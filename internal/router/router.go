package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/promotion-next/internal/authz"
	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/constants"
	adminhandlers "github.com/promotion-next/internal/http/handlers/admin"
	publichandlers "github.com/promotion-next/internal/http/handlers/public"
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:%s", redisPrefix, constants.RedisKeyClaimRateLimitScope),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.ClaimRateLimit.BlockSeconds,
		MessageKey:    "error.rate_limited",
	}
	codeStatusRule := claimRule
	codeStatusRule.Prefix = fmt.Sprintf("%s:rate:code_status", redisPrefix)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/coupons", publicHandler.ListIssuingCoupons)
			public.GET("/codes/:code/status", RateLimitMiddleware(redisClient, codeStatusRule, KeyByIP), publicHandler.CheckCodeStatus)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("/user-coupons")
		user.Use(UserJWTAuthMiddleware(c.AuthService, cfg.UserJWT.SecretKey))
		{
			user.GET("", publicHandler.ListMyCoupons)
			user.POST("/:couponId/receive", RateLimitMiddleware(redisClient, claimRule, KeyByUserID), publicHandler.ClaimCoupon)
			user.POST("/exchange", RateLimitMiddleware(redisClient, claimRule, KeyByUserID), publicHandler.RedeemCode)
			user.POST("/available", publicHandler.PriceOrder)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			authorized := admin.Use(JWTAuthMiddleware(c.AuthService, cfg.JWT.SecretKey), AdminRBACMiddleware(c.AuthzService))
			{
				// 优惠券
				authorized.POST("/coupons", adminHandler.CreateCoupon)
				authorized.GET("/coupons", adminHandler.GetCoupons)
				authorized.DELETE("/coupons/:id", adminHandler.DeleteCoupon)
				authorized.PUT("/coupons/:id/issue", adminHandler.BeginIssue)
				authorized.PUT("/coupons/:id/pause", adminHandler.PauseIssue)
				authorized.PUT("/coupons/:id/close", adminHandler.CloseIssue)

				// 兑换码
				authorized.POST("/coupons/:id/codes", adminHandler.GenerateCodes)
				authorized.PUT("/coupons/:id/codes/expiry", adminHandler.UpdateCodeExpiry)
				authorized.GET("/codes", adminHandler.GetCodes)
				authorized.PUT("/codes/:serial/status", adminHandler.MarkCodeStatus)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.POST("/authz/admins/:id/revoke-tokens", adminHandler.RevokeAdminTokens)
				authorized.POST("/authz/users/:id/revoke-tokens", adminHandler.RevokeUserTokens)
			}
		}
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := pingDatabase(); err != nil {
			status["status"], status["database"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := cache.Ping(ctx.Request.Context()); err != nil {
			status["status"], status["redis"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, status)
	})

	return r
}

func pingDatabase() error {
	if models.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
