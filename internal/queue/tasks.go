package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/promotion-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCouponClaimCommit 领取落库任务
	TaskCouponClaimCommit = constants.TaskCouponClaimCommit
)

// ClaimCommitPayload 领取落库指令
type ClaimCommitPayload struct {
	ReservationNo string    `json:"reservation_no"`
	CouponID      uint      `json:"coupon_id"`
	UserID        uint      `json:"user_id"`
	SerialNum     uint32    `json:"serial_num,omitempty"`
	ReservedAt    time.Time `json:"reserved_at"`
}

// Validate 校验载荷
func (p ClaimCommitPayload) Validate() error {
	if strings.TrimSpace(p.ReservationNo) == "" {
		return fmt.Errorf("reservation_no is required")
	}
	if p.CouponID == 0 || p.UserID == 0 {
		return fmt.Errorf("coupon_id and user_id are required")
	}
	return nil
}

// NewClaimCommitTask 创建领取落库任务
func NewClaimCommitTask(payload ClaimCommitPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCouponClaimCommit, body), nil
}

// ParseClaimCommitPayload 解析领取落库指令
func ParseClaimCommitPayload(body []byte) (ClaimCommitPayload, error) {
	var payload ClaimCommitPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("decode claim commit payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return payload, err
	}
	return payload, nil
}
