package service

import (
	"context"
	"strings"
	"time"

	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/discount"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/repository"
)

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	repo      repository.CouponRepository
	scopeRepo repository.CouponScopeRepository
	store     *cache.ClaimStore
	codes     *ExchangeCodeService
	now       func() time.Time
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(
	repo repository.CouponRepository,
	scopeRepo repository.CouponScopeRepository,
	store *cache.ClaimStore,
	codes *ExchangeCodeService,
) *CouponAdminService {
	return &CouponAdminService{
		repo:      repo,
		scopeRepo: scopeRepo,
		store:     store,
		codes:     codes,
		now:       time.Now,
	}
}

// CouponScopeInput 适用范围输入
type CouponScopeInput struct {
	Type  string
	BizID uint
}

// CreateCouponInput 创建优惠券输入
type CreateCouponInput struct {
	Name              string
	DiscountType      string
	Specific          bool
	DiscountValue     int64
	ThresholdAmount   int64
	MaxDiscountAmount int64
	ObtainWay         string
	TotalNum          int
	UserLimit         int
	Scopes            []CouponScopeInput
}

// BeginIssueInput 开始发放输入；IssueBeginTime 为空或不晚于当前时间时立即发放
type BeginIssueInput struct {
	IssueBeginTime *time.Time
	IssueEndTime   time.Time
	TermDays       int
	TermBeginTime  *time.Time
	TermEndTime    *time.Time
}

// Create 创建草稿券
func (s *CouponAdminService) Create(input CreateCouponInput) (*models.Coupon, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrCouponInvalid
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	if err := discount.Validate(discount.Terms{
		Type:        discountType,
		Value:       input.DiscountValue,
		Threshold:   input.ThresholdAmount,
		MaxDiscount: input.MaxDiscountAmount,
	}); err != nil {
		return nil, ErrCouponInvalid
	}
	obtainWay := strings.ToLower(strings.TrimSpace(input.ObtainWay))
	if obtainWay == "" {
		obtainWay = constants.ObtainWayPublic
	}
	if obtainWay != constants.ObtainWayPublic && obtainWay != constants.ObtainWayCode {
		return nil, ErrCouponInvalid
	}
	if input.TotalNum <= 0 || input.UserLimit < 0 {
		return nil, ErrCouponInvalid
	}

	scopes, err := normalizeScopes(input.Specific, input.Scopes)
	if err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		Name:           name,
		DiscountType:   discountType,
		Specific:       input.Specific,
		DiscountValue:  input.DiscountValue,
		ThresholdAmt:   input.ThresholdAmount,
		MaxDiscountAmt: input.MaxDiscountAmount,
		ObtainWay:      obtainWay,
		Status:         constants.CouponStatusDraft,
		TotalNum:       input.TotalNum,
		UserLimit:      input.UserLimit,
		Scopes:         scopes,
	}
	if err := s.repo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func normalizeScopes(specific bool, inputs []CouponScopeInput) ([]models.CouponScope, error) {
	if !specific {
		return nil, nil
	}
	if len(inputs) == 0 {
		return nil, ErrCouponScopeInvalid
	}
	seen := make(map[string]struct{}, len(inputs))
	scopes := make([]models.CouponScope, 0, len(inputs))
	for _, in := range inputs {
		scopeType := strings.ToLower(strings.TrimSpace(in.Type))
		if scopeType == "" {
			scopeType = constants.ScopeTypeCategory
		}
		if scopeType != constants.ScopeTypeCategory && scopeType != constants.ScopeTypeItem {
			return nil, ErrCouponScopeInvalid
		}
		if in.BizID == 0 {
			return nil, ErrCouponScopeInvalid
		}
		key := scopeType + ":" + uintKey(in.BizID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		scopes = append(scopes, models.CouponScope{Type: scopeType, BizID: in.BizID})
	}
	return scopes, nil
}

// BeginIssue 开始发放：草稿或暂停状态可用
func (s *CouponAdminService) BeginIssue(ctx context.Context, id uint, input BeginIssueInput) (*models.Coupon, error) {
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	prevStatus := coupon.Status
	if prevStatus != constants.CouponStatusDraft && prevStatus != constants.CouponStatusPaused {
		return nil, ErrCouponStatusInvalid
	}

	now := s.now()
	begin := now
	immediate := input.IssueBeginTime == nil || !input.IssueBeginTime.After(now)
	if !immediate {
		begin = *input.IssueBeginTime
	}
	end := input.IssueEndTime
	if end.IsZero() || !end.After(begin) || !end.After(now) {
		return nil, ErrIssueWindowInvalid
	}
	if input.TermBeginTime != nil || input.TermEndTime != nil {
		if input.TermBeginTime == nil || input.TermEndTime == nil || !input.TermEndTime.After(*input.TermBeginTime) {
			return nil, ErrIssueWindowInvalid
		}
	} else if input.TermDays <= 0 {
		return nil, ErrIssueWindowInvalid
	}

	target := constants.CouponStatusIssuing
	if !immediate {
		target = constants.CouponStatusUnscheduled
	}
	affected, err := s.repo.TransitionStatus(id,
		[]string{constants.CouponStatusDraft, constants.CouponStatusPaused},
		target,
		map[string]interface{}{
			"issue_begin_time": begin,
			"issue_end_time":   end,
			"term_days":        input.TermDays,
			"term_begin_time":  input.TermBeginTime,
			"term_end_time":    input.TermEndTime,
		},
	)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCouponStatusInvalid
	}
	coupon.Status = target
	coupon.IssueBeginTime = &begin
	coupon.IssueEndTime = &end
	coupon.TermDays = input.TermDays
	coupon.TermBeginTime = input.TermBeginTime
	coupon.TermEndTime = input.TermEndTime

	if target == constants.CouponStatusIssuing {
		if err := s.warm(ctx, coupon); err != nil {
			return nil, err
		}
	}

	if coupon.ByCode() && s.codes != nil {
		switch prevStatus {
		case constants.CouponStatusDraft:
			if err := s.codes.GenerateCodes(ctx, coupon.ID); err != nil {
				logger.Errorw("exchange_code_generate_trigger_failed", "coupon_id", coupon.ID, "error", err)
			}
		case constants.CouponStatusPaused:
			if _, err := s.codes.UpdateCodeExpiry(coupon.ID, end); err != nil {
				return nil, err
			}
		}
	}

	logger.Infow("coupon_issue_begun",
		"coupon_id", coupon.ID,
		"from", prevStatus,
		"to", target,
	)
	return coupon, nil
}

// Pause 暂停发放并移除准入数据
func (s *CouponAdminService) Pause(ctx context.Context, id uint) error {
	return s.transitionAndEvict(ctx, id, []string{constants.CouponStatusIssuing}, constants.CouponStatusPaused)
}

// Close 结束发放，终态
func (s *CouponAdminService) Close(ctx context.Context, id uint) error {
	return s.transitionAndEvict(ctx, id, []string{
		constants.CouponStatusIssuing,
		constants.CouponStatusPaused,
		constants.CouponStatusUnscheduled,
	}, constants.CouponStatusClosed)
}

func (s *CouponAdminService) transitionAndEvict(ctx context.Context, id uint, from []string, to string) error {
	affected, err := s.repo.TransitionStatus(id, from, to, nil)
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := s.repo.GetByID(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrCouponNotFound
		}
		return ErrCouponStatusInvalid
	}
	if err := s.store.EvictCoupon(ctx, id); err != nil {
		return err
	}
	logger.Infow("coupon_status_changed", "coupon_id", id, "to", to)
	return nil
}

// Delete 删除草稿券
func (s *CouponAdminService) Delete(id uint) error {
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	if coupon.Status != constants.CouponStatusDraft {
		return ErrCouponStatusInvalid
	}
	if err := s.scopeRepo.DeleteByCoupon(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

// List 优惠券分页列表
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.repo.List(filter)
}

// ListIssuing 发放中的公开券
func (s *CouponAdminService) ListIssuing() ([]models.Coupon, error) {
	return s.repo.ListIssuing()
}

// PromoteDue 到达开始时间的待发放券转为发放中，返回处理数量
func (s *CouponAdminService) PromoteDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.ListDueForIssue(now)
	if err != nil {
		return 0, err
	}
	promoted := 0
	for i := range due {
		coupon := &due[i]
		affected, err := s.repo.TransitionStatus(coupon.ID, []string{constants.CouponStatusUnscheduled}, constants.CouponStatusIssuing, nil)
		if err != nil {
			return promoted, err
		}
		if affected == 0 {
			continue
		}
		coupon.Status = constants.CouponStatusIssuing
		if err := s.warm(ctx, coupon); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// CloseEnded 已过结束时间的发放中券转为结束，返回处理数量
func (s *CouponAdminService) CloseEnded(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueForClose(s.now())
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, coupon := range due {
		affected, err := s.repo.TransitionStatus(coupon.ID, []string{constants.CouponStatusIssuing}, constants.CouponStatusClosed, nil)
		if err != nil {
			return closed, err
		}
		if affected == 0 {
			continue
		}
		if err := s.store.EvictCoupon(ctx, coupon.ID); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (s *CouponAdminService) warm(ctx context.Context, coupon *models.Coupon) error {
	if coupon.IssueBeginTime == nil || coupon.IssueEndTime == nil {
		return ErrIssueWindowInvalid
	}
	return s.store.WarmCoupon(ctx, cache.CouponSnapshot{
		CouponID:   coupon.ID,
		IssueBegin: *coupon.IssueBeginTime,
		IssueEnd:   *coupon.IssueEndTime,
		Stock:      coupon.Remaining(),
		UserLimit:  coupon.UserLimit,
		ObtainWay:  coupon.ObtainWay,
	})
}
