package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/provider"
	"github.com/promotion-next/internal/queue"
	"github.com/promotion-next/internal/service"

	"github.com/hibiken/asynq"
)

// ClaimCommitter 领取落库与补偿
type ClaimCommitter interface {
	CommitClaim(ctx context.Context, payload queue.ClaimCommitPayload) error
	Compensate(ctx context.Context, payload queue.ClaimCommitPayload, reason string) error
}

// IssueScheduler 发放状态推进
type IssueScheduler interface {
	PromoteDue(ctx context.Context) (int, error)
	CloseEnded(ctx context.Context) (int, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	Claims  ClaimCommitter
	Coupons IssueScheduler
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	consumer := &Consumer{}
	if c.ClaimService != nil {
		consumer.Claims = c.ClaimService
	}
	if c.CouponAdminService != nil {
		consumer.Coupons = c.CouponAdminService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCouponClaimCommit, c.handleClaimCommit)
}

func (c *Consumer) handleClaimCommit(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Claims == nil {
		logger.Debugw("worker_claim_commit_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseClaimCommitPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_claim_commit_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = c.Claims.CommitClaim(ctx, payload)
	if err == nil {
		return nil
	}
	if errors.Is(err, service.ErrClaimCommitRejected) {
		logger.Debugw("worker_claim_commit_rejected", "reservation_no", payload.ReservationNo, "error", err)
		return nil
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if ok && retried >= maxRetry {
		logger.Warnw("worker_claim_commit_retry_exhausted",
			"reservation_no", payload.ReservationNo,
			"retried", retried,
			"error", err,
		)
		if compErr := c.Claims.Compensate(ctx, payload, "commit retry exhausted: "+err.Error()); compErr != nil {
			return compErr
		}
		return nil
	}
	logger.Warnw("worker_claim_commit_failed",
		"reservation_no", payload.ReservationNo,
		"retried", retried,
		"error", err,
	)
	return err
}
