package service

import (
	"context"
	"strconv"
	"time"

	"github.com/promotion-next/internal/discount"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/repository"
)

// PricingService 下单前的优惠方案计算
type PricingService struct {
	userCouponRepo repository.UserCouponRepository
	engine         *discount.Engine
	now            func() time.Time
}

// NewPricingService 创建计价服务
func NewPricingService(userCouponRepo repository.UserCouponRepository, engine *discount.Engine) *PricingService {
	return &PricingService{userCouponRepo: userCouponRepo, engine: engine, now: time.Now}
}

// PriceOrder 以用户当前可用券计算订单的最优方案，按优惠金额降序
func (s *PricingService) PriceOrder(ctx context.Context, userID uint, items []discount.Item) ([]discount.Solution, error) {
	if len(items) == 0 {
		return nil, ErrOrderItemsInvalid
	}
	for _, item := range items {
		if item.ID == 0 || item.Price < 0 {
			return nil, ErrOrderItemsInvalid
		}
	}
	rows, err := s.userCouponRepo.ListUsable(userID, s.now())
	if err != nil {
		return nil, err
	}
	cands := candidatesOf(rows)
	if len(cands) == 0 {
		return []discount.Solution{}, nil
	}
	solutions := s.engine.Solve(ctx, items, cands)
	if solutions == nil {
		solutions = []discount.Solution{}
	}
	return solutions, nil
}

func candidatesOf(rows []models.UserCoupon) []discount.Candidate {
	cands := make([]discount.Candidate, 0, len(rows))
	for _, row := range rows {
		if row.Coupon == nil {
			continue
		}
		c := row.Coupon
		scopes := make([]discount.Scope, 0, len(c.Scopes))
		for _, sc := range c.Scopes {
			scopes = append(scopes, discount.Scope{Type: sc.Type, BizID: sc.BizID})
		}
		cands = append(cands, discount.Candidate{
			ID:       row.ID,
			CouponID: c.ID,
			Name:     c.Name,
			Terms: discount.Terms{
				Type:        c.DiscountType,
				Value:       c.DiscountValue,
				Threshold:   c.ThresholdAmt,
				MaxDiscount: c.MaxDiscountAmt,
			},
			Specific: c.Specific,
			Scopes:   scopes,
		})
	}
	return cands
}

func uintKey(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
