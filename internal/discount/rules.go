package discount

import (
	"fmt"

	"github.com/promotion-next/internal/constants"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Terms 优惠券计价条款，金额均为最小货币单位
type Terms struct {
	Type        string
	Value       int64 // 立减金额；折扣类型为减免百分比
	Threshold   int64
	MaxDiscount int64 // 0 表示不封顶
}

// Rule 单一优惠类型的计价策略
type Rule interface {
	CanApply(amount int64, t Terms) bool
	Compute(amount int64, t Terms) int64
	Describe(t Terms) string
}

var rules = map[string]Rule{
	constants.DiscountTypeNoThreshold: noThresholdRule{},
	constants.DiscountTypePriceOff:    priceOffRule{},
	constants.DiscountTypePerPriceOff: perPriceRule{},
	constants.DiscountTypeRate:        rateRule{},
}

// RuleFor 按优惠类型获取策略，未知类型返回 false
func RuleFor(discountType string) (Rule, bool) {
	r, ok := rules[discountType]
	return r, ok
}

// Supported 是否为已知优惠类型
func Supported(discountType string) bool {
	_, ok := rules[discountType]
	return ok
}

// Apply 按条款计算优惠；不满足条件返回 0
func Apply(amount int64, t Terms) int64 {
	r, ok := RuleFor(t.Type)
	if !ok || !r.CanApply(amount, t) {
		return 0
	}
	return clamp(r.Compute(amount, t), amount)
}

// Describe 条款的文字描述
func Describe(t Terms) string {
	r, ok := RuleFor(t.Type)
	if !ok {
		return ""
	}
	return r.Describe(t)
}

type noThresholdRule struct{}

func (noThresholdRule) CanApply(amount int64, _ Terms) bool {
	return amount > 0
}

func (noThresholdRule) Compute(amount int64, t Terms) int64 {
	return clamp(t.Value, amount)
}

func (noThresholdRule) Describe(t Terms) string {
	return fmt.Sprintf("无门槛抵%s元", yuan(t.Value))
}

type priceOffRule struct{}

func (priceOffRule) CanApply(amount int64, t Terms) bool {
	return amount > 0 && amount >= t.Threshold
}

func (priceOffRule) Compute(amount int64, t Terms) int64 {
	return clamp(t.Value, amount)
}

func (priceOffRule) Describe(t Terms) string {
	return fmt.Sprintf("满%s元减%s元", yuan(t.Threshold), yuan(t.Value))
}

// 每满 Threshold 减 Value，MaxDiscount 封顶
type perPriceRule struct{}

func (perPriceRule) CanApply(amount int64, t Terms) bool {
	return t.Threshold > 0 && amount >= t.Threshold
}

func (perPriceRule) Compute(amount int64, t Terms) int64 {
	if t.Threshold <= 0 {
		return 0
	}
	off := (amount / t.Threshold) * t.Value
	if t.MaxDiscount > 0 && off > t.MaxDiscount {
		off = t.MaxDiscount
	}
	return clamp(off, amount)
}

func (perPriceRule) Describe(t Terms) string {
	desc := fmt.Sprintf("每满%s元减%s元", yuan(t.Threshold), yuan(t.Value))
	if t.MaxDiscount > 0 {
		desc += fmt.Sprintf("，上限%s元", yuan(t.MaxDiscount))
	}
	return desc
}

// Value 为减免百分比，10 即打九折；结果向零截断
type rateRule struct{}

func (rateRule) CanApply(amount int64, t Terms) bool {
	return amount > 0 && amount >= t.Threshold && t.Value > 0 && t.Value < 100
}

func (rateRule) Compute(amount int64, t Terms) int64 {
	off := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(t.Value)).
		Div(hundred).
		Truncate(0).
		IntPart()
	if t.MaxDiscount > 0 && off > t.MaxDiscount {
		off = t.MaxDiscount
	}
	return clamp(off, amount)
}

func (rateRule) Describe(t Terms) string {
	fold := decimal.NewFromInt(100 - t.Value).Div(decimal.NewFromInt(10))
	desc := fmt.Sprintf("%s折", fold.String())
	if t.Threshold > 0 {
		desc = fmt.Sprintf("满%s元打%s", yuan(t.Threshold), desc)
	}
	if t.MaxDiscount > 0 {
		desc += fmt.Sprintf("，最多减%s元", yuan(t.MaxDiscount))
	}
	return desc
}

func clamp(off, amount int64) int64 {
	if off < 0 {
		return 0
	}
	if off > amount {
		return amount
	}
	return off
}

func yuan(minor int64) string {
	return decimal.New(minor, -2).String()
}

// Validate 校验条款是否可用于建券
func Validate(t Terms) error {
	if !Supported(t.Type) {
		return fmt.Errorf("unsupported discount type %q", t.Type)
	}
	if t.Value <= 0 {
		return fmt.Errorf("discount value must be positive")
	}
	if t.Threshold < 0 || t.MaxDiscount < 0 {
		return fmt.Errorf("threshold and max discount must not be negative")
	}
	switch t.Type {
	case constants.DiscountTypePerPriceOff:
		if t.Threshold <= 0 {
			return fmt.Errorf("per price discount requires a threshold")
		}
	case constants.DiscountTypeRate:
		if t.Value >= 100 {
			return fmt.Errorf("rate discount must be below 100 percent")
		}
	}
	return nil
}
