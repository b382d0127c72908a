package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/promotion-next/internal/config"

	kafkago "github.com/segmentio/kafka-go"
)

const headerTaskType = "task_type"

// KafkaPublisher 以 Kafka 主题投递领取落库指令，预占单号作为消息键
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher 创建 Kafka 投递端
func NewKafkaPublisher(cfg *config.KafkaConfig) (*KafkaPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}, nil
}

// Enabled 判断是否启用
func (p *KafkaPublisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// PublishClaimCommit 写入落库指令
func (p *KafkaPublisher) PublishClaimCommit(ctx context.Context, payload ClaimCommitPayload) error {
	if !p.Enabled() {
		return fmt.Errorf("kafka publisher disabled")
	}
	msg, err := EncodeClaimCommitMessage(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close 关闭写入端
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// EncodeClaimCommitMessage 领取落库指令编码为 Kafka 消息
func EncodeClaimCommitMessage(payload ClaimCommitPayload) (kafkago.Message, error) {
	if err := payload.Validate(); err != nil {
		return kafkago.Message{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:     []byte(payload.ReservationNo),
		Value:   body,
		Headers: []kafkago.Header{{Key: headerTaskType, Value: []byte(TaskCouponClaimCommit)}},
	}, nil
}

// DecodeClaimCommitMessage 解析 Kafka 消息；非落库指令返回 false
func DecodeClaimCommitMessage(msg kafkago.Message) (ClaimCommitPayload, bool, error) {
	for _, h := range msg.Headers {
		if h.Key == headerTaskType && string(h.Value) != TaskCouponClaimCommit {
			return ClaimCommitPayload{}, false, nil
		}
	}
	payload, err := ParseClaimCommitPayload(msg.Value)
	if err != nil {
		return payload, true, err
	}
	return payload, true, nil
}
