package app

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/controller"
	"careerx_backend/internal/llm"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/service"
	"careerx_backend/pkg/configwatcher"
	"careerx_backend/pkg/database"
	"careerx_backend/pkg/logger"
	"careerx_backend/pkg/monitoring"
	"careerx_backend/pkg/security"
	"careerx_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

// Dependencies 外部依赖，NewApp 按配置创建，测试中直接注入
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Provider llm.Provider
	Gateway  service.PaymentGateway
	Mailer   service.Mailer
	Storage  *service.StorageService
}

type repositories struct {
	user       *repository.UserRepository
	profile    *repository.ProfileRepository
	assessment *repository.AssessmentRepository
	payment    *repository.PaymentRepository
	roadmap    *repository.RoadmapRepository
	resetCodes repository.ResetCodeStore
}

type services struct {
	ai         *service.AIService
	auth       *service.AuthService
	storage    *service.StorageService
	profile    *service.ProfileService
	report     *service.ReportService
	assessment *service.AssessmentService
	payment    *service.PaymentService
	roadmap    *service.RoadmapService
	chatbot    *service.ChatbotService
}

type controllers struct {
	auth       *controller.AuthController
	profile    *controller.ProfileController
	assessment *controller.AssessmentController
	payment    *controller.PaymentController
	roadmap    *controller.RoadmapController
	chatbot    *controller.ChatbotController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	repos := &repositories{
		user:       repository.NewUserRepository(db),
		profile:    repository.NewProfileRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		payment:    repository.NewPaymentRepository(db),
		roadmap:    repository.NewRoadmapRepository(db),
	}
	// 启用 Redis 时验证码存 Redis，依赖 TTL 过期
	if rdb != nil {
		repos.resetCodes = repository.NewRedisResetCodeStore(rdb)
	} else {
		repos.resetCodes = repository.NewGormResetCodeStore(db)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, deps Dependencies) *services {
	s := &services{storage: deps.Storage}

	s.ai = service.NewAIService(deps.Provider, cfg.AI.Timeout(), cfg.AI.MaxTokens)
	s.auth = service.NewAuthService(repos.user, repos.resetCodes, deps.Mailer, cfg)
	s.profile = service.NewProfileService(repos.profile, repos.user, s.storage)
	s.report = service.NewReportService(service.PDFReportRenderer{}, deps.Mailer, repos.user, repos.assessment)
	s.assessment = service.NewAssessmentService(
		repos.assessment,
		repos.profile,
		s.ai,
		s.ai,
		s.report,
		s.storage,
		cfg.Assessment,
	)
	s.payment = service.NewPaymentService(repos.payment, deps.Gateway, cfg.Payment)
	s.roadmap = service.NewRoadmapService(
		repos.roadmap,
		repos.payment,
		repos.profile,
		repos.assessment,
		repos.user,
		s.ai,
		deps.Mailer,
	)
	s.chatbot = service.NewChatbotService(s.ai, repos.profile, repos.assessment)
	return s
}

func (a *App) initControllers(s *services, deps Dependencies) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		profile:    controller.NewProfileController(s.profile),
		assessment: controller.NewAssessmentController(s.assessment),
		payment:    controller.NewPaymentController(s.payment),
		roadmap:    controller.NewRoadmapController(s.roadmap),
		chatbot:    controller.NewChatbotController(s.chatbot),
		health:     controller.NewHealthController(deps.DB, deps.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// applyConfig 热更新仅作用于限流和 AI 超时，其余配置需重启
func (a *App) applyConfig(cfg *config.Config) {
	a.limiter.SetLimit(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	a.services.ai.SetTimeout(cfg.AI.Timeout())
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

// New 组装仓储、服务、控制器和路由
func New(cfg *config.Config, deps Dependencies) *App {
	gin.SetMode(cfg.Server.Mode)

	app := &App{
		Config:  cfg,
		DB:      deps.DB,
		Redis:   deps.Redis,
		limiter: security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute),
	}

	repos := app.initRepositories(deps.DB, deps.Redis)
	app.services = app.initServices(repos, cfg, deps)
	controllers := app.initControllers(app.services, deps)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不迁移，需 -migrate 显式开启
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	ctx := context.Background()
	storage, err := service.NewStorageService(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	provider, err := llm.NewProvider(ctx, cfg.AI)
	if err != nil {
		logger.Log.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := New(cfg, Dependencies{
		DB:       db,
		Redis:    rdb,
		Provider: provider,
		Gateway:  service.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret),
		Mailer:   service.NewMailer(cfg.Mail),
		Storage:  storage,
	})
	app.tracer = tp
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.limiter.Run(ctx.Done())
	go func() {
		if err := configwatcher.WatchConfig(ctx, filepath.Join("configs", "config.yaml"), a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
