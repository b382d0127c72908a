package saga

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// State 预占状态
type State string

const (
	StateReserved    State = "reserved"
	StateCommitted   State = "committed"
	StateCompensated State = "compensated"
)

// ErrInvalidTransition 预占已处于终态
var ErrInvalidTransition = errors.New("reservation already settled")

// Reservation 准入成功后、落库前的一次领取预占。
// Reserved 只能转入 Committed 或 Compensated 之一，终态不可再变。
type Reservation struct {
	No         string
	CouponID   uint
	UserID     uint
	Serial     uint32
	State      State
	ReservedAt time.Time
}

// NewReservation 创建预占，单号全局唯一
func NewReservation(couponID, userID uint, serial uint32, now time.Time) *Reservation {
	return &Reservation{
		No:         uuid.NewString(),
		CouponID:   couponID,
		UserID:     userID,
		Serial:     serial,
		State:      StateReserved,
		ReservedAt: now,
	}
}

// Commit 转入已提交
func (r *Reservation) Commit() error {
	return r.transition(StateCommitted)
}

// Compensate 转入已补偿
func (r *Reservation) Compensate() error {
	return r.transition(StateCompensated)
}

// Settled 是否已到终态
func (r *Reservation) Settled() bool {
	return r.State == StateCommitted || r.State == StateCompensated
}

// ByCode 是否为兑换码领取
func (r *Reservation) ByCode() bool {
	return r.Serial > 0
}

func (r *Reservation) transition(to State) error {
	if r.State != StateReserved {
		return ErrInvalidTransition
	}
	r.State = to
	return nil
}
