package worker

import (
	"context"
	"errors"
	"time"

	"github.com/promotion-next/internal/logger"
)

const defaultScheduleInterval = 30 * time.Second

// Scheduler 定时推进优惠券发放状态：到点开放、过期结束
type Scheduler struct {
	name     string
	coupons  IssueScheduler
	interval time.Duration
}

// NewScheduler 创建调度服务
func NewScheduler(coupons IssueScheduler, interval time.Duration) (*Scheduler, error) {
	if coupons == nil {
		return nil, errors.New("issue scheduler is nil")
	}
	if interval <= 0 {
		interval = defaultScheduleInterval
	}
	return &Scheduler{name: "scheduler", coupons: coupons, interval: interval}, nil
}

// Name 服务名称
func (s *Scheduler) Name() string {
	if s == nil || s.name == "" {
		return "scheduler"
	}
	return s.name
}

// Start 启动后立即执行一次，之后按间隔执行直到 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil || s.coupons == nil {
		return errors.New("scheduler not initialized")
	}
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 停止服务
func (s *Scheduler) Stop(ctx context.Context) error {
	return nil
}

// RunOnce 执行一轮状态推进
func (s *Scheduler) RunOnce(ctx context.Context) {
	if promoted, err := s.coupons.PromoteDue(ctx); err != nil {
		logger.Warnw("worker_coupon_promote_due_failed", "error", err)
	} else if promoted > 0 {
		logger.Infow("worker_coupon_promoted", "count", promoted)
	}
	if closed, err := s.coupons.CloseEnded(ctx); err != nil {
		logger.Warnw("worker_coupon_close_ended_failed", "error", err)
	} else if closed > 0 {
		logger.Infow("worker_coupon_closed", "count", closed)
	}
}
