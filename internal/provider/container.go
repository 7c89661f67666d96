package provider

import (
	"github.com/mintoria-api/internal/cache"
	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/queue"
	"github.com/mintoria-api/internal/repository"
	"github.com/mintoria-api/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config        *config.Config
	QueueClient   *queue.Client
	ChainRegistry *chain.Registry

	// Repositories
	AdminRepo           repository.AdminRepository
	ProjectRepo         repository.ProjectRepository
	LocationRepo        repository.LocationRepository
	DropRepo            repository.DropRepository
	ClaimSessionRepo    repository.ClaimSessionRepository
	MintRepo            repository.MintRepository
	WalletlessRepo      repository.WalletlessRepository
	EmailVerifyCodeRepo repository.EmailVerifyCodeRepository

	// Services
	AuthService       *service.AuthService
	EmailService      *service.EmailService
	ProjectService    *service.ProjectService
	LocationService   *service.LocationService
	DropService       *service.DropService
	ClaimService      *service.ClaimService
	VaultService      *service.VaultService
	MintService       *service.MintService
	WalletlessService *service.WalletlessService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化链适配器
	c.initChainRegistry()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.ProjectRepo = repository.NewProjectRepository(db)
	c.LocationRepo = repository.NewLocationRepository(db)
	c.DropRepo = repository.NewDropRepository(db)
	c.ClaimSessionRepo = repository.NewClaimSessionRepository(db)
	c.MintRepo = repository.NewMintRepository(db)
	c.WalletlessRepo = repository.NewWalletlessRepository(db)
	c.EmailVerifyCodeRepo = repository.NewEmailVerifyCodeRepository(db)
}

func (c *Container) initChainRegistry() {
	registry := chain.NewRegistry()
	registry.Register(chain.NewEVMAdapter(c.Config.Chains.EVM))
	registry.Register(chain.NewSolanaAdapter(c.Config.Chains.Solana))
	registry.Register(chain.NewStellarAdapter(c.Config.Chains.Stellar))
	registry.SetDisabled(constants.ChainEVM, !c.Config.Chains.EVM.Enabled)
	registry.SetDisabled(constants.ChainSolana, !c.Config.Chains.Solana.Enabled)
	registry.SetDisabled(constants.ChainStellar, !c.Config.Chains.Stellar.Enabled)
	c.ChainRegistry = registry
}

func (c *Container) initServices() {
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ProjectService = service.NewProjectService(c.ProjectRepo, c.LocationRepo)
	c.LocationService = service.NewLocationService(c.LocationRepo, c.ProjectRepo, c.DropRepo)
	c.DropService = service.NewDropService(c.DropRepo, c.LocationRepo, c.MintRepo)
	c.ClaimService = service.NewClaimService(c.Config, c.DropRepo, c.ClaimSessionRepo)
	c.VaultService = service.NewVaultService(c.Config.Vault, c.WalletlessRepo, c.ChainRegistry)
	c.MintService = service.NewMintService(c.Config, c.ChainRegistry, c.DropRepo, c.MintRepo, c.ClaimService)

	var codeStore cache.VerifyCodeStore
	if cache.Enabled() {
		codeStore = cache.NewRedisVerifyCodeStore()
	} else {
		codeStore = cache.NewMemoryVerifyCodeStore()
	}
	c.WalletlessService = service.NewWalletlessService(
		c.Config,
		c.WalletlessRepo,
		c.EmailVerifyCodeRepo,
		codeStore,
		c.DropRepo,
		c.ChainRegistry,
		c.VaultService,
		c.MintService,
		c.EmailService,
		c.QueueClient,
	)
}
