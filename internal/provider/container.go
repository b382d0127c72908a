package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/promotion-next/internal/authz"
	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/codec"
	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/discount"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/queue"
	"github.com/promotion-next/internal/repository"
	"github.com/promotion-next/internal/service"
	"github.com/promotion-next/internal/workpool"
)

// Container 依赖注入容器
type Container struct {
	Config    *config.Config
	Publisher queue.Publisher
	Store     *cache.ClaimStore
	Codec     *codec.Codec

	// Pools
	DiscountPool *workpool.Pool
	CodegenPool  *workpool.Pool

	// Repositories
	CouponRepo       repository.CouponRepository
	CouponScopeRepo  repository.CouponScopeRepository
	UserCouponRepo   repository.UserCouponRepository
	ExchangeCodeRepo repository.ExchangeCodeRepository
	ClaimSagaRepo    repository.ClaimSagaRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	ClaimService        *service.ClaimService
	CouponAdminService  *service.CouponAdminService
	ExchangeCodeService *service.ExchangeCodeService
	PricingService      *service.PricingService
}

// NewContainer 初始化容器，领取准入依赖 Redis，不可用时直接返回错误
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !cache.Enabled() {
		if err := cache.InitRedis(&cfg.Redis); err != nil {
			logger.Errorw("provider_init_redis_failed", "error", err)
			return nil, err
		}
	}
	client := cache.Client()
	if client == nil {
		return nil, errors.New("redis is required for coupon claim admission")
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		logger.Errorw("provider_init_publisher_failed", "backend", cfg.Queue.Backend, "error", err)
		return nil, err
	}

	c := &Container{
		Config:    cfg,
		Publisher: publisher,
		Store:     cache.NewClaimStore(client, cache.Prefix()),
		Codec:     codec.NewFromSecrets(cfg.Promotion.Code.XorSecret, cfg.Promotion.Code.PrimeSecret),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}

	return c, nil
}

// newPublisher 按 queue.backend 选择落库指令投递端；队列关闭时返回未启用的客户端，领取在请求内同步落库
func newPublisher(cfg *config.Config) (queue.Publisher, error) {
	if !cfg.Queue.Enabled {
		return queue.NewClient(nil)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Queue.Backend)) {
	case constants.QueueBackendKafka:
		return queue.NewKafkaPublisher(&cfg.Kafka)
	case "", constants.QueueBackendAsynq:
		return queue.NewClient(&cfg.Queue)
	default:
		return nil, errors.New("unknown queue backend: " + cfg.Queue.Backend)
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponScopeRepo = repository.NewCouponScopeRepository(db)
	c.UserCouponRepo = repository.NewUserCouponRepository(db)
	c.ExchangeCodeRepo = repository.NewExchangeCodeRepository(db)
	c.ClaimSagaRepo = repository.NewClaimSagaRepository(db)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}

	promo := c.Config.Promotion
	// 方案计算：排队上限为 workers 的 64 倍，饱和时拒绝的方案不参与排名
	c.DiscountPool = workpool.New("discount", promo.Discount.Workers, promo.Discount.Workers*64, workpool.Abort)
	// 兑换码生成：饱和时由提交方同步执行
	c.CodegenPool = workpool.New("codegen", promo.Codegen.Workers, promo.Codegen.QueueSize, workpool.CallerRuns)

	engine := discount.NewEngine(c.DiscountPool, promo.Discount.Timeout(), promo.Discount.MaxPermuteCoupons)

	c.AuthService = service.NewAuthService(c.Config.JWT, c.Config.UserJWT)
	c.ExchangeCodeService = service.NewExchangeCodeService(c.CouponRepo, c.ExchangeCodeRepo, c.Store, c.Codec, c.CodegenPool, promo.Codegen.BatchSize)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.CouponScopeRepo, c.Store, c.ExchangeCodeService)
	c.ClaimService = service.NewClaimService(c.CouponRepo, c.UserCouponRepo, c.ExchangeCodeRepo, c.ClaimSagaRepo, c.Store, c.Codec, c.Publisher)
	c.PricingService = service.NewPricingService(c.UserCouponRepo, engine)
	return nil
}

// Close 释放协程池与投递端
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, pool := range []*workpool.Pool{c.CodegenPool, c.DiscountPool} {
		if pool == nil {
			continue
		}
		if err := pool.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
