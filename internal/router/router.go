package router

import (
	"fmt"
	"strings"

	"github.com/mintoria-api/internal/cache"
	"github.com/mintoria-api/internal/config"
	adminhandlers "github.com/mintoria-api/internal/http/handlers/admin"
	publichandlers "github.com/mintoria-api/internal/http/handlers/public"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mintoria"
	}
	redisClient := cache.Client()
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:claim", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxAttempts,
		Message:       "领取请求过于频繁",
	}
	codeRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:code", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxAttempts,
		Message:       "验证码请求过于频繁",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（扫码领取流程）
		public := apiV1.Group("/public")
		{
			public.GET("/locations/:slug", publicHandler.GetLocationBySlug)
			public.GET("/chains", publicHandler.GetChains)
			public.POST("/locations/:slug/claims", RateLimitMiddleware(redisClient, claimRule, KeyByIP), publicHandler.CreateClaimSession)
			public.GET("/claims/:token", publicHandler.ValidateClaimSession)
		}

		// 无钱包领取接口
		walletless := apiV1.Group("/walletless")
		{
			walletless.POST("/start", RateLimitMiddleware(redisClient, codeRule, KeyByIPAndJSONField("email")), publicHandler.StartWalletless)
			walletless.POST("/verify", publicHandler.VerifyWalletless)
			walletless.POST("/mint", publicHandler.MintWalletless)
		}

		// 钱包流程回报接口
		apiV1.POST("/mints/confirm", publicHandler.ConfirmMint)

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.GET("/me", adminHandler.GetCurrentAdmin)
				authorized.PUT("/me/password", adminHandler.ChangePassword)

				// 项目管理
				authorized.GET("/projects", adminHandler.GetProjects)
				authorized.GET("/projects/:id", adminHandler.GetProject)
				authorized.POST("/projects", adminHandler.CreateProject)
				authorized.PUT("/projects/:id", adminHandler.UpdateProject)
				authorized.DELETE("/projects/:id", adminHandler.DeleteProject)

				// 地点管理
				authorized.GET("/locations", adminHandler.GetLocations)
				authorized.GET("/locations/:id", adminHandler.GetLocation)
				authorized.POST("/locations", adminHandler.CreateLocation)
				authorized.PUT("/locations/:id", adminHandler.UpdateLocation)
				authorized.DELETE("/locations/:id", adminHandler.DeleteLocation)

				// 发放管理
				authorized.GET("/drops", adminHandler.GetDrops)
				authorized.GET("/drops/:id", adminHandler.GetDrop)
				authorized.POST("/drops", adminHandler.CreateDrop)
				authorized.PUT("/drops/:id", adminHandler.UpdateDrop)
				authorized.POST("/drops/:id/publish", adminHandler.PublishDrop)
				authorized.POST("/drops/:id/deactivate", adminHandler.DeactivateDrop)
				authorized.DELETE("/drops/:id", adminHandler.DeleteDrop)

				// 铸造流水与链状态
				authorized.GET("/mints", adminHandler.GetMints)
				authorized.GET("/chains", adminHandler.GetChainStatus)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
