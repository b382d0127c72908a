package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	startErr error
	log      *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *recordingService) Stop(context.Context) error {
	s.log.add("stop:" + s.name)
	return nil
}

func TestRunnerStopsInReverseThenCloses(t *testing.T) {
	log := &eventLog{}
	runner := NewRunner(
		&recordingService{name: "worker", log: log},
		&recordingService{name: "http", log: log},
	)
	runner.OnShutdown(func(context.Context) error {
		log.add("close:container")
		return nil
	})
	runner.OnShutdown(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, runner.Run(ctx, time.Second, nil))

	assert.Equal(t, []string{"stop:http", "stop:worker", "close:container"}, log.snapshot())
}

func TestRunnerReturnsStartError(t *testing.T) {
	log := &eventLog{}
	boom := errors.New("listen failed")
	runner := NewRunner(
		&recordingService{name: "worker", log: log},
		&recordingService{name: "http", startErr: boom, log: log},
	)
	closed := false
	runner.OnShutdown(func(context.Context) error {
		closed = true
		return errors.New("ignored")
	})

	err := runner.Run(context.Background(), time.Second, nil)
	require.ErrorIs(t, err, boom)
	assert.True(t, closed)
}

func TestRunnerWithoutServices(t *testing.T) {
	require.Error(t, NewRunner().Run(context.Background(), time.Second, nil))
	require.Error(t, RunWithOptions(nil, Options{}))
}

func TestNormalizeOptionsMode(t *testing.T) {
	opts := normalizeOptions(Options{Mode: " Worker "})
	assert.Equal(t, ModeWorker, opts.Mode)
	assert.NoError(t, validateMode(opts.Mode))

	assert.Equal(t, ModeAll, normalizeOptions(Options{}).Mode)
	assert.Error(t, validateMode("cron"))
	_, err := BuildRunner(nil, ModeAll)
	assert.Error(t, err)
}
