package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/promotion-next/internal/queue"
	"github.com/promotion-next/internal/service"

	"github.com/hibiken/asynq"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommitter struct {
	mu          sync.Mutex
	errs        []error
	commits     int
	compensated []string
}

func (f *fakeCommitter) CommitClaim(_ context.Context, _ queue.ClaimCommitPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeCommitter) Compensate(_ context.Context, payload queue.ClaimCommitPayload, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compensated = append(f.compensated, payload.ReservationNo)
	return nil
}

func claimTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := queue.NewClaimCommitTask(queue.ClaimCommitPayload{ReservationNo: "r-1", CouponID: 1, UserID: 2})
	require.NoError(t, err)
	return task
}

func claimMessage(t *testing.T) kafkago.Message {
	t.Helper()
	msg, err := queue.EncodeClaimCommitMessage(queue.ClaimCommitPayload{ReservationNo: "r-k", CouponID: 1, UserID: 2})
	require.NoError(t, err)
	return msg
}

func TestHandleClaimCommit(t *testing.T) {
	transient := errors.New("db timeout")
	rejected := fmt.Errorf("%w: sold out", service.ErrClaimCommitRejected)

	cases := []struct {
		name    string
		errs    []error
		wantErr error
	}{
		{name: "committed"},
		{name: "rejected is acknowledged", errs: []error{rejected}},
		{name: "transient is retried", errs: []error{transient}, wantErr: transient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			committer := &fakeCommitter{errs: tc.errs}
			consumer := &Consumer{Claims: committer}
			err := consumer.handleClaimCommit(context.Background(), claimTask(t))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, committer.commits)
			assert.Empty(t, committer.compensated)
		})
	}
}

func TestHandleClaimCommitSkipsMalformedPayload(t *testing.T) {
	committer := &fakeCommitter{}
	consumer := &Consumer{Claims: committer}
	err := consumer.handleClaimCommit(context.Background(), asynq.NewTask(queue.TaskCouponClaimCommit, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, committer.commits)
}

func TestHandleClaimMessageRetriesThenCompensates(t *testing.T) {
	transient := errors.New("db timeout")
	committer := &fakeCommitter{errs: []error{transient, transient, transient}}
	consumer := &Consumer{Claims: committer}

	require.NoError(t, consumer.HandleClaimMessage(context.Background(), claimMessage(t), 2, 0))
	assert.Equal(t, 3, committer.commits)
	assert.Equal(t, []string{"r-k"}, committer.compensated)
}

func TestHandleClaimMessageRecoversWithinRetries(t *testing.T) {
	committer := &fakeCommitter{errs: []error{errors.New("db timeout")}}
	consumer := &Consumer{Claims: committer}

	require.NoError(t, consumer.HandleClaimMessage(context.Background(), claimMessage(t), 3, 0))
	assert.Equal(t, 2, committer.commits)
	assert.Empty(t, committer.compensated)
}

func TestHandleClaimMessageIgnoresOtherTasks(t *testing.T) {
	committer := &fakeCommitter{}
	consumer := &Consumer{Claims: committer}
	msg := claimMessage(t)
	msg.Headers = []kafkago.Header{{Key: "task_type", Value: []byte("other:task")}}

	require.NoError(t, consumer.HandleClaimMessage(context.Background(), msg, 3, 0))
	assert.Zero(t, committer.commits)
}
