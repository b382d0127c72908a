// Package discount 优惠方案计算：按订单明细与用户可用券枚举叠加顺序，
// 并行求值后返回帕累托最优方案。
package discount

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/workpool"

	"github.com/shopspring/decimal"
)

// Item 订单明细
type Item struct {
	ID         uint  `json:"id"`
	CategoryID uint  `json:"category_id"`
	Price      int64 `json:"price"`
}

// Scope 适用范围条目
type Scope struct {
	Type  string
	BizID uint
}

// Candidate 用户持有的一张可用券
type Candidate struct {
	ID       uint // 用户券ID
	CouponID uint
	Name     string
	Terms    Terms
	Specific bool
	Scopes   []Scope
}

// Solution 一种叠加方案
type Solution struct {
	UserCouponIDs []uint         `json:"user_coupon_ids"`
	CouponIDs     []uint         `json:"coupon_ids"`
	Rules         []string       `json:"rules"`
	Discount      int64          `json:"discount_amount"`
	ItemDiscounts map[uint]int64 `json:"item_discounts"`
}

// Engine 方案计算引擎
type Engine struct {
	pool       *workpool.Pool
	timeout    time.Duration
	maxPermute int
}

// NewEngine 创建引擎；pool 为空时在调用方协程内串行求值
func NewEngine(pool *workpool.Pool, timeout time.Duration, maxPermute int) *Engine {
	if timeout <= 0 {
		timeout = time.Second
	}
	if maxPermute <= 0 {
		maxPermute = 6
	}
	return &Engine{pool: pool, timeout: timeout, maxPermute: maxPermute}
}

type available struct {
	cand  Candidate
	items []int
	solo  int64
}

// Solve 计算最优方案，按优惠金额降序返回；超时未完成的方案不参与排名
func (e *Engine) Solve(ctx context.Context, items []Item, cands []Candidate) []Solution {
	if len(items) == 0 || len(cands) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var total int64
	for _, item := range items {
		total += item.Price
	}

	avail := make([]available, 0, len(sorted))
	for _, cand := range sorted {
		rule, ok := RuleFor(cand.Terms.Type)
		if !ok {
			logger.Warnw("discount_unknown_type", "user_coupon_id", cand.ID, "type", cand.Terms.Type)
			continue
		}
		if !rule.CanApply(total, cand.Terms) {
			continue
		}
		idx, subtotal := scopedItems(items, cand)
		if len(idx) == 0 || !rule.CanApply(subtotal, cand.Terms) {
			continue
		}
		avail = append(avail, available{cand: cand, items: idx, solo: Apply(subtotal, cand.Terms)})
	}
	if len(avail) == 0 {
		return nil
	}

	sequences := e.enumerate(avail)
	results := e.evaluateAll(ctx, items, sequences)
	return selectBest(results)
}

// scopedItems 返回券可作用的明细下标与小计
func scopedItems(items []Item, cand Candidate) ([]int, int64) {
	idx := make([]int, 0, len(items))
	var subtotal int64
	for i, item := range items {
		if cand.Specific && !inScope(item, cand.Scopes) {
			continue
		}
		idx = append(idx, i)
		subtotal += item.Price
	}
	return idx, subtotal
}

func inScope(item Item, scopes []Scope) bool {
	for _, s := range scopes {
		switch s.Type {
		case constants.ScopeTypeCategory:
			if s.BizID == item.CategoryID {
				return true
			}
		case constants.ScopeTypeItem:
			if s.BizID == item.ID {
				return true
			}
		}
	}
	return false
}

// enumerate 全排列叠加加上每张券单独使用；超过上限时只对单券优惠最高的前 N 张做全排列
func (e *Engine) enumerate(avail []available) [][]available {
	pool := avail
	if len(pool) > e.maxPermute {
		ranked := make([]available, len(pool))
		copy(ranked, pool)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].solo != ranked[j].solo {
				return ranked[i].solo > ranked[j].solo
			}
			return ranked[i].cand.ID < ranked[j].cand.ID
		})
		pool = ranked[:e.maxPermute]
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].cand.ID < pool[j].cand.ID })
	}

	var out [][]available
	seen := make(map[string]struct{})
	add := func(seq []available) {
		key := sequenceKey(seq)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, seq)
	}

	permute(pool, func(seq []available) {
		cp := make([]available, len(seq))
		copy(cp, seq)
		add(cp)
	})
	for _, a := range avail {
		add([]available{a})
	}
	return out
}

func permute(items []available, emit func([]available)) {
	work := make([]available, len(items))
	copy(work, items)
	var rec func(k int)
	rec = func(k int) {
		if k == len(work) {
			emit(work)
			return
		}
		for i := k; i < len(work); i++ {
			work[k], work[i] = work[i], work[k]
			rec(k + 1)
			work[k], work[i] = work[i], work[k]
		}
	}
	rec(0)
}

func (e *Engine) evaluateAll(ctx context.Context, items []Item, sequences [][]available) []Solution {
	if e.pool == nil {
		out := make([]Solution, 0, len(sequences))
		for _, seq := range sequences {
			out = append(out, evaluate(items, seq))
		}
		return out
	}

	ch := make(chan Solution, len(sequences))
	expected := 0
	for _, seq := range sequences {
		seq := seq
		err := e.pool.Submit(func() { ch <- evaluate(items, seq) })
		if err != nil {
			logger.Warnw("discount_evaluation_rejected", "pool", e.pool.Name(), "error", err)
			continue
		}
		expected++
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	out := make([]Solution, 0, expected)
	for len(out) < expected {
		select {
		case sol := <-ch:
			out = append(out, sol)
		case <-timer.C:
			logger.Warnw("discount_evaluation_timeout", "completed", len(out), "expected", expected)
			return out
		case <-ctx.Done():
			return out
		}
	}
	return out
}

// evaluate 按顺序逐张计算剩余金额上的优惠，并按剩余价格比例分摊到明细
func evaluate(items []Item, seq []available) Solution {
	detail := make([]int64, len(items))
	sol := Solution{ItemDiscounts: make(map[uint]int64)}
	for _, a := range seq {
		rule, _ := RuleFor(a.cand.Terms.Type)
		remains := make([]int64, len(a.items))
		var amount int64
		for i, idx := range a.items {
			remains[i] = items[idx].Price - detail[idx]
			amount += remains[i]
		}
		if !rule.CanApply(amount, a.cand.Terms) {
			continue
		}
		off := clamp(rule.Compute(amount, a.cand.Terms), amount)
		if off <= 0 {
			continue
		}
		for i, share := range apportion(off, remains) {
			detail[a.items[i]] += share
		}
		sol.UserCouponIDs = append(sol.UserCouponIDs, a.cand.ID)
		sol.CouponIDs = append(sol.CouponIDs, a.cand.CouponID)
		sol.Rules = append(sol.Rules, rule.Describe(a.cand.Terms))
		sol.Discount += off
	}
	for i, d := range detail {
		if d > 0 {
			sol.ItemDiscounts[items[i].ID] += d
		}
	}
	return sol
}

// apportion 按比例分摊 off，取整余数全部计入最后一件；每件不超过其剩余价格
func apportion(off int64, remains []int64) []int64 {
	shares := make([]int64, len(remains))
	if len(remains) == 0 || off <= 0 {
		return shares
	}
	var amount int64
	for _, r := range remains {
		amount += r
	}
	if amount <= 0 {
		return shares
	}
	last := len(remains) - 1
	total := decimal.NewFromInt(amount)
	var assigned int64
	for i := 0; i < last; i++ {
		shares[i] = decimal.NewFromInt(off).
			Mul(decimal.NewFromInt(remains[i])).
			Div(total).
			Truncate(0).
			IntPart()
		assigned += shares[i]
	}
	shares[last] = off - assigned

	// 余数超过最后一件剩余价格时，超出部分回填到前面仍有余量的明细
	if excess := shares[last] - remains[last]; excess > 0 {
		shares[last] = remains[last]
		for i := last - 1; i >= 0 && excess > 0; i-- {
			room := remains[i] - shares[i]
			if room <= 0 {
				continue
			}
			if room > excess {
				room = excess
			}
			shares[i] += room
			excess -= room
		}
	}
	return shares
}

// selectBest 取“同券组合优惠最大”与“同优惠金额用券最少”的交集
func selectBest(results []Solution) []Solution {
	bestBySet := make(map[string]Solution)
	for _, sol := range results {
		if len(sol.UserCouponIDs) == 0 || sol.Discount <= 0 {
			continue
		}
		key := setKey(sol.UserCouponIDs)
		cur, ok := bestBySet[key]
		if !ok || sol.Discount > cur.Discount ||
			(sol.Discount == cur.Discount && idsKey(sol.UserCouponIDs) < idsKey(cur.UserCouponIDs)) {
			bestBySet[key] = sol
		}
	}

	fewest := make(map[int64]int)
	for _, sol := range bestBySet {
		n, ok := fewest[sol.Discount]
		if !ok || len(sol.UserCouponIDs) < n {
			fewest[sol.Discount] = len(sol.UserCouponIDs)
		}
	}

	out := make([]Solution, 0, len(bestBySet))
	for _, sol := range bestBySet {
		if len(sol.UserCouponIDs) == fewest[sol.Discount] {
			out = append(out, sol)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Discount != out[j].Discount {
			return out[i].Discount > out[j].Discount
		}
		if len(out[i].UserCouponIDs) != len(out[j].UserCouponIDs) {
			return len(out[i].UserCouponIDs) < len(out[j].UserCouponIDs)
		}
		return setKey(out[i].UserCouponIDs) < setKey(out[j].UserCouponIDs)
	})
	return out
}

func sequenceKey(seq []available) string {
	ids := make([]uint, len(seq))
	for i, a := range seq {
		ids[i] = a.cand.ID
	}
	return idsKey(ids)
}

func setKey(ids []uint) string {
	sorted := make([]uint, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return idsKey(sorted)
}

func idsKey(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
