package app

import (
	"errors"
	"strings"
	"time"

	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/provider"
	"github.com/promotion-next/internal/router"
	"github.com/promotion-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateMode(mode); err != nil {
		return nil, err
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	var services []Service

	// Worker 服务：落库消费与发放状态调度
	if mode == ModeAll || mode == ModeWorker {
		workerServices, err := buildWorkerServices(cfg, container)
		if err != nil {
			return nil, err
		}
		services = append(services, workerServices...)
	}

	// HTTP 服务放在最后，停机时最先停止
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

func buildWorkerServices(cfg *config.Config, container *provider.Container) ([]Service, error) {
	consumer := worker.NewConsumer(container)
	var services []Service

	if cfg.Queue.Enabled {
		switch strings.ToLower(strings.TrimSpace(cfg.Queue.Backend)) {
		case constants.QueueBackendKafka:
			kafkaService, err := worker.NewKafkaService(&cfg.Kafka, cfg.Queue.MaxRetry, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, kafkaService)
		default:
			asynqService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, asynqService)
		}
	}

	scheduler, err := worker.NewScheduler(consumer.Coupons, time.Duration(cfg.Promotion.Scheduler.IntervalSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	return append(services, scheduler), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode, "queue_backend", opts.Config.Queue.Backend)
	return RunWithOptions(runner, opts)
}
