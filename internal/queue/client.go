package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 领取落库队列
	CriticalQueue = constants.QueueCritical
	// DefaultMaxRetry 落库任务默认重试次数
	DefaultMaxRetry = 5
)

// Publisher 领取落库指令投递
type Publisher interface {
	Enabled() bool
	PublishClaimCommit(ctx context.Context, payload ClaimCommitPayload) error
	Close() error
}

// Client 队列客户端封装
type Client struct {
	client   *asynq.Client
	enabled  bool
	queue    string
	maxRetry int
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, queue: CriticalQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	return &Client{
		client:   asynq.NewClient(opt),
		enabled:  true,
		queue:    CriticalQueue,
		maxRetry: maxRetryOf(cfg),
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// PublishClaimCommit 推送领取落库任务，预占单号作为任务 ID 去重
func (c *Client) PublishClaimCommit(ctx context.Context, payload ClaimCommitPayload) error {
	if !c.Enabled() {
		return fmt.Errorf("queue disabled")
	}
	task, err := NewClaimCommitTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.TaskID(payload.ReservationNo),
	)
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = make(map[string]int, len(cfg.Queues)+1)
		for name, weight := range cfg.Queues {
			queues[name] = weight
		}
	}
	// 领取落库任务只投递到 critical 队列，必须被消费
	if queues[CriticalQueue] <= 0 {
		queues[CriticalQueue] = 6
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func maxRetryOf(cfg *config.QueueConfig) int {
	if cfg == nil || cfg.MaxRetry <= 0 {
		return DefaultMaxRetry
	}
	return cfg.MaxRetry
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
