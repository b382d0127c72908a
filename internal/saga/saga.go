// Package saga 领取预占的状态机与带补偿的步骤编排。
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step 一个可补偿步骤
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 顺序执行步骤，失败时逆序补偿已完成的步骤
type Saga struct {
	name  string
	steps []Step
	log   *zap.SugaredLogger
}

// New 创建编排器
func New(name string, log *zap.SugaredLogger) *Saga {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Saga{name: name, log: log}
}

// AddStep 追加步骤
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute 执行全部步骤；返回的错误包装了失败步骤的原始错误
func (s *Saga) Execute(ctx context.Context) error {
	executed := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			s.log.Debugw("saga_step_failed", "saga", s.name, "step", step.Name, "error", err)
			s.compensate(ctx, executed)
			return fmt.Errorf("saga %s failed at %s: %w", s.name, step.Name, err)
		}
		executed = append(executed, step)
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, executed []Step) {
	for i := len(executed) - 1; i >= 0; i-- {
		step := executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.log.Errorw("saga_compensation_failed", "saga", s.name, "step", step.Name, "error", err)
		}
	}
}
