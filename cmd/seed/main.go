package main

import (
	"context"
	"time"

	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/provider"
	"github.com/promotion-next/internal/repository"
	"github.com/promotion-next/internal/service"
)

const (
	demoAdminID    uint = 1
	demoOperatorID uint = 2
	demoUserID     uint = 10001
)

type demoCoupon struct {
	input    service.CreateCouponInput
	termDays int
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	ctx := context.Background()
	defer func() {
		// 等待兑换码生成池排空
		closeCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			stdLog.Printf("Failed to close container: %v", err)
		}
	}()

	coupons := []demoCoupon{
		{input: service.CreateCouponInput{
			Name:          "新人无门槛 5 元券",
			DiscountType:  constants.DiscountTypeNoThreshold,
			DiscountValue: 500,
			ObtainWay:     constants.ObtainWayPublic,
			TotalNum:      1000,
			UserLimit:     1,
		}, termDays: 7},
		{input: service.CreateCouponInput{
			Name:            "满 100 减 20",
			DiscountType:    constants.DiscountTypePriceOff,
			DiscountValue:   2000,
			ThresholdAmount: 10000,
			ObtainWay:       constants.ObtainWayPublic,
			TotalNum:        500,
			UserLimit:       2,
		}, termDays: 14},
		{input: service.CreateCouponInput{
			Name:              "数码品类 85 折",
			DiscountType:      constants.DiscountTypeRate,
			Specific:          true,
			DiscountValue:     15,
			MaxDiscountAmount: 5000,
			ObtainWay:         constants.ObtainWayPublic,
			TotalNum:          200,
			UserLimit:         1,
			Scopes:            []service.CouponScopeInput{{Type: constants.ScopeTypeCategory, BizID: 1}},
		}, termDays: 30},
		{input: service.CreateCouponInput{
			Name:            "兑换码专享每满 50 减 5",
			DiscountType:    constants.DiscountTypePerPriceOff,
			DiscountValue:   500,
			ThresholdAmount: 5000,
			ObtainWay:       constants.ObtainWayCode,
			TotalNum:        100,
			UserLimit:       1,
		}, termDays: 30},
	}

	issueEnd := time.Now().Add(30 * 24 * time.Hour)
	for _, demo := range coupons {
		existing, _, err := container.CouponAdminService.List(repository.CouponListFilter{Page: 1, PageSize: 1, Name: demo.input.Name})
		if err != nil {
			stdLog.Fatalf("Failed to query coupons: %v", err)
		}
		if len(existing) > 0 {
			stdLog.Printf("Coupon already exists: %s", demo.input.Name)
			continue
		}

		coupon, err := container.CouponAdminService.Create(demo.input)
		if err != nil {
			stdLog.Printf("Failed to create coupon %s: %v", demo.input.Name, err)
			continue
		}
		coupon, err = container.CouponAdminService.BeginIssue(ctx, coupon.ID, service.BeginIssueInput{
			IssueEndTime: issueEnd,
			TermDays:     demo.termDays,
		})
		if err != nil {
			stdLog.Printf("Failed to issue coupon %s: %v", demo.input.Name, err)
			continue
		}
		stdLog.Printf("Created coupon: %s (id=%d, status=%s)", coupon.Name, coupon.ID, coupon.Status)

		if coupon.ByCode() {
			if err := container.ExchangeCodeService.GenerateCodes(ctx, coupon.ID); err != nil {
				stdLog.Printf("Failed to generate codes for %s: %v", coupon.Name, err)
			}
		}
	}

	if err := container.AuthzService.SetAdminRoles(demoOperatorID, []string{"coupon_operator", "code_operator"}); err != nil {
		stdLog.Printf("Failed to bind operator roles: %v", err)
	}

	adminToken, _, err := container.AuthService.GenerateAdminJWT(demoAdminID, "admin", true)
	if err != nil {
		stdLog.Fatalf("Failed to sign admin token: %v", err)
	}
	operatorToken, _, err := container.AuthService.GenerateAdminJWT(demoOperatorID, "operator", false)
	if err != nil {
		stdLog.Fatalf("Failed to sign operator token: %v", err)
	}
	userToken, _, err := container.AuthService.GenerateUserJWT(demoUserID)
	if err != nil {
		stdLog.Fatalf("Failed to sign user token: %v", err)
	}
	stdLog.Printf("Super admin token: %s", adminToken)
	stdLog.Printf("Operator token: %s", operatorToken)
	stdLog.Printf("User token (user_id=%d): %s", demoUserID, userToken)
}
