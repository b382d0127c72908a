package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/codec"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/queue"
	"github.com/promotion-next/internal/repository"
	"github.com/promotion-next/internal/saga"

	"gorm.io/gorm"
)

// ClaimService 领券与兑换码兑换：准入预占、异步落库、失败补偿
type ClaimService struct {
	couponRepo     repository.CouponRepository
	userCouponRepo repository.UserCouponRepository
	codeRepo       repository.ExchangeCodeRepository
	sagaRepo       repository.ClaimSagaRepository
	store          *cache.ClaimStore
	codec          *codec.Codec
	publisher      queue.Publisher
	now            func() time.Time
}

// NewClaimService 创建领取服务；publisher 未启用时在请求内同步落库
func NewClaimService(
	couponRepo repository.CouponRepository,
	userCouponRepo repository.UserCouponRepository,
	codeRepo repository.ExchangeCodeRepository,
	sagaRepo repository.ClaimSagaRepository,
	store *cache.ClaimStore,
	cc *codec.Codec,
	publisher queue.Publisher,
) *ClaimService {
	return &ClaimService{
		couponRepo:     couponRepo,
		userCouponRepo: userCouponRepo,
		codeRepo:       codeRepo,
		sagaRepo:       sagaRepo,
		store:          store,
		codec:          cc,
		publisher:      publisher,
		now:            time.Now,
	}
}

// ClaimResult 领取受理结果
type ClaimResult struct {
	ReservationNo string `json:"reservation_no"`
	CouponID      uint   `json:"coupon_id"`
	Committed     bool   `json:"committed"`
}

// Claim 直接领取公开券
func (s *ClaimService) Claim(ctx context.Context, userID, couponID uint) (*ClaimResult, error) {
	if userID == 0 || couponID == 0 {
		return nil, ErrCouponNotFound
	}
	res := saga.NewReservation(couponID, userID, 0, s.now())
	flow := saga.New("coupon_claim", logger.Component("claim"))
	s.addAdmitStep(flow, res, constants.ObtainWayPublic)
	committed := s.addDispatchStep(flow, res)
	if err := flow.Execute(ctx); err != nil {
		return nil, err
	}
	return &ClaimResult{ReservationNo: res.No, CouponID: couponID, Committed: *committed}, nil
}

// Redeem 兑换码兑换
func (s *ClaimService) Redeem(ctx context.Context, userID uint, code string) (*ClaimResult, error) {
	if userID == 0 {
		return nil, ErrExchangeCodeInvalid
	}
	decoded, err := s.codec.Decode(code)
	if err != nil {
		return nil, ErrExchangeCodeInvalid
	}
	row, err := s.codeRepo.GetBySerial(uint(decoded.Serial))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrExchangeCodeNotFound
	}
	couponID := row.ExchangeTargetID
	if !decoded.BelongsTo(couponID) || !strings.EqualFold(row.Code, strings.TrimSpace(code)) {
		return nil, ErrExchangeCodeMismatch
	}
	owner, ok, err := s.store.CouponBySerial(ctx, decoded.Serial)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFastStoreUnavailable, err)
	}
	if ok && owner != couponID {
		return nil, ErrExchangeCodeMismatch
	}
	switch row.EffectiveStatus(s.now()) {
	case constants.ExchangeCodeStatusUsed:
		return nil, ErrExchangeCodeUsed
	case constants.ExchangeCodeStatusExpired:
		return nil, ErrExchangeCodeExpired
	}

	res := saga.NewReservation(couponID, userID, decoded.Serial, s.now())
	flow := saga.New("coupon_redeem", logger.Component("claim"))
	flow.AddStep(saga.Step{
		Name: "mark_code",
		Execute: func(ctx context.Context) error {
			prev, err := s.store.MarkCode(ctx, res.Serial, true)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFastStoreUnavailable, err)
			}
			if prev {
				return ErrExchangeCodeUsed
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if res.Settled() {
				return nil
			}
			_, err := s.store.MarkCode(ctx, res.Serial, false)
			return err
		},
	})
	s.addAdmitStep(flow, res, constants.ObtainWayCode)
	committed := s.addDispatchStep(flow, res)
	if err := flow.Execute(ctx); err != nil {
		return nil, err
	}
	return &ClaimResult{ReservationNo: res.No, CouponID: couponID, Committed: *committed}, nil
}

func (s *ClaimService) addAdmitStep(flow *saga.Saga, res *saga.Reservation, obtainWay string) {
	flow.AddStep(saga.Step{
		Name: "admit",
		Execute: func(ctx context.Context) error {
			result, err := s.store.AdmitVia(ctx, res.CouponID, res.UserID, s.now(), obtainWay)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFastStoreUnavailable, err)
			}
			if result != cache.AdmissionOK {
				logger.Debugw("claim_admission_rejected",
					"coupon_id", res.CouponID,
					"user_id", res.UserID,
					"reason", result.String(),
				)
				return admissionError(result)
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if res.Settled() {
				return nil
			}
			return s.store.Release(ctx, res.CouponID, res.UserID)
		},
	})
}

// addDispatchStep 投递落库指令；队列不可用时同步落库，失败由补偿流程接管
func (s *ClaimService) addDispatchStep(flow *saga.Saga, res *saga.Reservation) *bool {
	committed := new(bool)
	flow.AddStep(saga.Step{
		Name: "dispatch",
		Execute: func(ctx context.Context) error {
			payload := payloadOf(res)
			if s.publisher != nil && s.publisher.Enabled() {
				if err := s.publisher.PublishClaimCommit(ctx, payload); err != nil {
					logger.Errorw("claim_publish_failed",
						"reservation_no", res.No,
						"coupon_id", res.CouponID,
						"user_id", res.UserID,
						"error", err,
					)
					// 投递可能已到达队列，先落终态再回退，迟到的落库指令据此忽略
					if compErr := s.Compensate(ctx, payload, "publish failed"); compErr != nil {
						logger.Errorw("claim_publish_compensate_failed", "reservation_no", res.No, "error", compErr)
					}
					_ = res.Compensate()
					return fmt.Errorf("%w: %v", ErrClaimPublishFailed, err)
				}
				return nil
			}
			if err := s.CommitClaim(ctx, payload); err != nil {
				if !errors.Is(err, ErrClaimCommitRejected) {
					_ = s.Compensate(ctx, payload, err.Error())
				}
				_ = res.Compensate()
				return err
			}
			_ = res.Commit()
			*committed = true
			return nil
		},
	})
	return committed
}

// CommitClaim 落库一次预占：写终态、条件增加已发放数、写用户券、核销兑换码。
// 不可重试的拒绝会在返回前完成补偿，并返回 ErrClaimCommitRejected。
func (s *ClaimService) CommitClaim(ctx context.Context, payload queue.ClaimCommitPayload) error {
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrClaimCommitRejected, err)
	}
	now := s.now()
	var settled string
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sagaRepo := s.sagaRepo.WithTx(tx)
		won, err := sagaRepo.Decide(&models.CouponClaimSaga{
			ReservationNo: payload.ReservationNo,
			CouponID:      payload.CouponID,
			UserID:        payload.UserID,
			SerialNum:     payload.SerialNum,
			Status:        constants.ClaimSagaStatusCommitted,
		})
		if err != nil {
			return err
		}
		if !won {
			existing, err := sagaRepo.GetByReservation(payload.ReservationNo)
			if err != nil {
				return err
			}
			if existing != nil {
				settled = existing.Status
			}
			return nil
		}

		coupon, err := s.couponRepo.WithTx(tx).GetByID(payload.CouponID)
		if err != nil {
			return err
		}
		if coupon == nil {
			return ErrCouponNotFound
		}
		affected, err := s.couponRepo.WithTx(tx).IncrementIssueNum(payload.CouponID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrClaimStockExhausted
		}

		begin, end := coupon.TermWindow(now)
		if err := s.userCouponRepo.WithTx(tx).Create(&models.UserCoupon{
			UserID:        payload.UserID,
			CouponID:      payload.CouponID,
			ReservationNo: payload.ReservationNo,
			TermBeginTime: begin,
			TermEndTime:   end,
			Status:        constants.UserCouponStatusUnused,
		}); err != nil {
			return err
		}

		if payload.SerialNum > 0 {
			affected, err := s.codeRepo.WithTx(tx).MarkUsed(uint(payload.SerialNum), payload.UserID, now)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrExchangeCodeUsed
			}
		}
		return nil
	})

	switch {
	case err == nil && settled != "":
		logger.Infow("claim_commit_duplicate",
			"reservation_no", payload.ReservationNo,
			"status", settled,
		)
		return nil
	case err == nil:
		logger.Infow("claim_committed",
			"reservation_no", payload.ReservationNo,
			"coupon_id", payload.CouponID,
			"user_id", payload.UserID,
		)
		return nil
	case isPermanentCommitError(err):
		logger.Warnw("claim_commit_rejected",
			"reservation_no", payload.ReservationNo,
			"coupon_id", payload.CouponID,
			"user_id", payload.UserID,
			"error", err,
		)
		if compErr := s.Compensate(ctx, payload, err.Error()); compErr != nil {
			return compErr
		}
		return fmt.Errorf("%w: %v", ErrClaimCommitRejected, err)
	default:
		logger.Errorw("claim_commit_failed",
			"reservation_no", payload.ReservationNo,
			"coupon_id", payload.CouponID,
			"user_id", payload.UserID,
			"error", err,
		)
		return err
	}
}

// Compensate 回退一次预占；与提交互斥，只生效一次
func (s *ClaimService) Compensate(ctx context.Context, payload queue.ClaimCommitPayload, reason string) error {
	won, err := s.sagaRepo.Decide(&models.CouponClaimSaga{
		ReservationNo: payload.ReservationNo,
		CouponID:      payload.CouponID,
		UserID:        payload.UserID,
		SerialNum:     payload.SerialNum,
		Status:        constants.ClaimSagaStatusCompensated,
		Reason:        reason,
	})
	if err != nil {
		// 无法记录终态时仍回退快速存储，避免库存永久泄漏
		if relErr := s.releaseFastStore(ctx, payload); relErr != nil {
			logger.Errorw("claim_compensation_release_failed", "reservation_no", payload.ReservationNo, "error", relErr)
		}
		logger.Errorw("claim_compensation_unrecorded",
			"reservation_no", payload.ReservationNo,
			"coupon_id", payload.CouponID,
			"user_id", payload.UserID,
			"error", err,
		)
		return err
	}
	if !won {
		existing, err := s.sagaRepo.GetByReservation(payload.ReservationNo)
		if err != nil {
			return err
		}
		if existing == nil || existing.Status == constants.ClaimSagaStatusCommitted || existing.Released {
			return nil
		}
	}

	if err := s.releaseFastStore(ctx, payload); err != nil {
		logger.Errorw("claim_compensation_release_failed", "reservation_no", payload.ReservationNo, "error", err)
		return err
	}
	if err := s.sagaRepo.MarkReleased(payload.ReservationNo); err != nil {
		return err
	}
	logger.Infow("claim_compensated",
		"reservation_no", payload.ReservationNo,
		"coupon_id", payload.CouponID,
		"user_id", payload.UserID,
		"reason", reason,
	)
	return nil
}

func (s *ClaimService) releaseFastStore(ctx context.Context, payload queue.ClaimCommitPayload) error {
	if err := s.store.Release(ctx, payload.CouponID, payload.UserID); err != nil {
		return err
	}
	if payload.SerialNum > 0 {
		if _, err := s.store.MarkCode(ctx, payload.SerialNum, false); err != nil {
			return err
		}
	}
	return nil
}

// ListMyCouponsInput 我的优惠券查询
type ListMyCouponsInput struct {
	UserID   uint
	Status   string
	Page     int
	PageSize int
}

// ListMyCoupons 我的优惠券，expired 按有效期推导
func (s *ClaimService) ListMyCoupons(input ListMyCouponsInput) ([]models.UserCoupon, int64, error) {
	now := s.now()
	rows, total, err := s.userCouponRepo.List(repository.UserCouponListFilter{
		Page:     input.Page,
		PageSize: input.PageSize,
		UserID:   input.UserID,
		Status:   input.Status,
		Now:      now,
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range rows {
		rows[i].Status = rows[i].EffectiveStatus(now)
	}
	return rows, total, nil
}

func payloadOf(res *saga.Reservation) queue.ClaimCommitPayload {
	return queue.ClaimCommitPayload{
		ReservationNo: res.No,
		CouponID:      res.CouponID,
		UserID:        res.UserID,
		SerialNum:     res.Serial,
		ReservedAt:    res.ReservedAt,
	}
}

func admissionError(result cache.AdmissionResult) error {
	switch result {
	case cache.AdmissionNotOpen:
		return ErrClaimNotOpen
	case cache.AdmissionStockExhausted:
		return ErrClaimStockExhausted
	case cache.AdmissionEnded:
		return ErrClaimIssuanceEnded
	case cache.AdmissionQuotaExceeded:
		return ErrClaimQuotaExceeded
	default:
		return fmt.Errorf("unexpected admission result %d", int64(result))
	}
}

func isPermanentCommitError(err error) bool {
	return errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrClaimStockExhausted) ||
		errors.Is(err, ErrExchangeCodeUsed)
}
