package worker

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/queue"
	"github.com/promotion-next/internal/service"

	kafkago "github.com/segmentio/kafka-go"
)

const defaultKafkaRetryBackoff = 200 * time.Millisecond

// KafkaService 消费 Kafka 主题中的领取落库指令
type KafkaService struct {
	name     string
	reader   *kafkago.Reader
	consumer *Consumer
	maxRetry int
	backoff  time.Duration
}

// NewKafkaService 创建 Kafka 消费服务
func NewKafkaService(cfg *config.KafkaConfig, maxRetry int, consumer *Consumer) (*KafkaService, error) {
	if cfg == nil || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	if maxRetry <= 0 {
		maxRetry = queue.DefaultMaxRetry
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return &KafkaService{
		name:     "kafka-worker",
		reader:   reader,
		consumer: consumer,
		maxRetry: maxRetry,
		backoff:  defaultKafkaRetryBackoff,
	}, nil
}

// Name 服务名称
func (s *KafkaService) Name() string {
	if s == nil || s.name == "" {
		return "kafka-worker"
	}
	return s.name
}

// Start 拉取消息，处理完成后提交位点
func (s *KafkaService) Start(ctx context.Context) error {
	if s == nil || s.reader == nil {
		return errors.New("kafka worker not initialized")
	}
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := s.consumer.HandleClaimMessage(ctx, msg, s.maxRetry, s.backoff); err != nil {
			// 补偿也失败时不提交位点，重启后重新投递
			logger.Errorw("worker_kafka_message_unsettled",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return err
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Stop 停止服务
func (s *KafkaService) Stop(ctx context.Context) error {
	if s == nil || s.reader == nil {
		return nil
	}
	_ = ctx
	return s.reader.Close()
}

// HandleClaimMessage 处理一条 Kafka 领取指令：进程内重试，耗尽后补偿
func (c *Consumer) HandleClaimMessage(ctx context.Context, msg kafkago.Message, maxRetry int, backoff time.Duration) error {
	if c == nil || c.Claims == nil {
		return nil
	}
	payload, ok, err := queue.DecodeClaimCommitMessage(msg)
	if !ok {
		logger.Debugw("worker_kafka_message_skip_type", "offset", msg.Offset)
		return nil
	}
	if err != nil {
		logger.Warnw("worker_kafka_message_unmarshal_failed", "offset", msg.Offset, "error", err)
		return nil
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetry; attempt++ {
		if attempt > 0 && backoff > 0 {
			timer := time.NewTimer(backoff * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		lastErr = c.Claims.CommitClaim(ctx, payload)
		if lastErr == nil || errors.Is(lastErr, service.ErrClaimCommitRejected) {
			return nil
		}
		logger.Warnw("worker_claim_commit_failed",
			"reservation_no", payload.ReservationNo,
			"attempt", attempt,
			"error", lastErr,
		)
	}
	logger.Warnw("worker_claim_commit_retry_exhausted", "reservation_no", payload.ReservationNo, "error", lastErr)
	return c.Claims.Compensate(ctx, payload, "commit retry exhausted: "+lastErr.Error())
}
