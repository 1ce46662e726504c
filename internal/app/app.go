package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Clock           clock.Scheduler
	services        *services
	configCallbacks []func(*config.Config)
	tracer          *trace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
}

type repositories struct {
	assignment *repository.AssignmentRepository
	attempt    *repository.AttemptRepository
	progress   *repository.ChapterProgressRepository
}

type services struct {
	assignment *service.AssignmentService
	attempt    *service.AttemptService
	progress   *service.ProgressService
	archive    *service.ArchiveService
}

type controllers struct {
	assignment *controller.AssignmentController
	attempt    *controller.AttemptController
	progress   *controller.ProgressController
	countdown  *controller.CountdownController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// Reload 把新配置分发给已注册的回调
func (a *App) Reload(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		assignment: repository.NewAssignmentRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		progress:   repository.NewChapterProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.archive = service.NewArchiveService(cfg)
	s.assignment = service.NewAssignmentService(repos.assignment, rdb, a.Clock, cfg.Session.CacheTTL())
	s.progress = service.NewProgressService(repos.progress, s.assignment)
	s.attempt = service.NewAttemptService(
		repos.attempt,
		s.assignment,
		s.progress,
		s.archive,
		rdb,
		a.Clock,
		cfg.Session.ExpiryGrace(),
	)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.attempt.SetGrace(c.Session.ExpiryGrace())
		s.assignment.SetCacheTTL(c.Session.CacheTTL())
		logger.L().Info("Session settings updated",
			zap.Duration("expiry_grace", c.Session.ExpiryGrace()),
			zap.Duration("cache_ttl", c.Session.CacheTTL()))
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assignment: controller.NewAssignmentController(s.assignment),
		attempt:    controller.NewAttemptController(s.attempt),
		progress:   controller.NewProgressController(s.progress),
		countdown:  controller.NewCountdownController(s.attempt, a.Clock),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window, nil))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定期把超时未提交的尝试置为 expired
func (a *App) startBackgroundTasks(s *services, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				n, err := s.attempt.SweepExpired(a.ctx)
				if err != nil {
					logger.Log.Error("Expiry sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Log.Info("Expired overdue attempts", zap.Int("count", n))
				}
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != "release")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Clock:  clock.Real{},
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 没有 Redis 时缓存和分布式锁退化为空操作
		logger.Log.Warn("Redis unavailable, running without cache and locks", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/archives", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, cfg.Session.SweepInterval())

	return app
}

// Context is cancelled when the server shuts down.
func (a *App) Context() context.Context {
	return a.ctx
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
