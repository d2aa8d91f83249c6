package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/config"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/controller"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/repository"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/router"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/service"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/task"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/database"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/logger"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() { _ = log.Sync() }()

	// 3. 初始化数据库
	db, err := initDatabase(cfg, log)
	if err != nil {
		log.Fatal("[Main] 数据库初始化失败", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	// 4. 初始化依赖
	deps := initDependencies(cfg, db, log)

	// 5. 启动定时任务
	if err := deps.Tasks.Start(); err != nil {
		log.Fatal("[Main] 定时任务启动失败", zap.Error(err))
	}
	defer deps.Tasks.Stop()

	// 6. 初始化路由
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.GinMiddleware(log), logger.Recovery(log))
	router.InitRoutes(r, deps.Controllers.Shipping, deps.Controllers.Integration, deps.Controllers.Sync, cfg.Sync.ManualCooldown)

	// 7. 启动服务
	startServer(cfg.App.Port, r, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Dispatcher  net.Dispatcher
	Services    *Services
	Controllers *Controllers
	Tasks       *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Brand        repository.BrandRepository
	ShippingZone repository.ShippingZoneRepository
	ShippingRate repository.ShippingRateRepository
}

// Services 服务集合
type Services struct {
	Shipping    *service.ShippingSyncService
	Integration *service.IntegrationService
}

// Controllers 控制器集合
type Controllers struct {
	Shipping    *controller.ShippingController
	Integration *controller.IntegrationController
	Sync        *controller.SyncController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	opts := database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        logger.GormLevel(cfg.Database.LogLevel),
	}

	var models []interface{}
	if cfg.Database.AutoMigrate {
		models = []interface{}{
			// Brand
			&model.Brand{},
			// Shipping
			&model.ShippingZone{}, &model.ShippingRate{},
		}
	}
	return database.InitDB(cfg.Database.DSN(), opts, log, models...)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Brand:        repository.NewBrandRepository(db),
		ShippingZone: repository.NewShippingZoneRepository(db),
		ShippingRate: repository.NewShippingRateRepository(db),
	}

	// -------- 网络调度 --------
	netOpts := net.DefaultOptions()
	netOpts.MinInterval = cfg.Shopify.MinInterval
	netOpts.Timeout = cfg.Shopify.RequestTimeout
	netOpts.MaxRetries429 = cfg.Shopify.Max429Retries
	dispatcher := net.NewDispatcher(netOpts, log.Named("net"))

	shopifyCfg := shopify.Config{
		APIVersion: cfg.Shopify.APIVersion,
		Scheme:     cfg.Shopify.Scheme,
	}

	// -------- 业务服务 --------
	services := &Services{
		Shipping: service.NewShippingSyncService(
			repos.Brand, repos.ShippingZone, repos.ShippingRate,
			dispatcher, shopifyCfg,
			service.NewDefaultShippingRulePolicy(), service.NewBrandLocker(),
			log.Named("shipping"),
		),
		Integration: service.NewIntegrationService(
			repos.Brand, dispatcher, shopifyCfg,
			service.IntegrationOptions{
				WebhookBaseURL: cfg.Shopify.WebhookBaseURL,
				PageSize:       cfg.Shopify.PageSize,
				MaxPages:       cfg.Shopify.MaxPages,
			},
			log.Named("integration"),
		),
	}

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		BrandLister:    repos.Brand,
		ShippingSyncer: services.Shipping,
		Logger:         log.Named("task"),
	}, &task.TaskManagerConfig{
		ShippingEnabled:     cfg.Sync.Enabled,
		ShippingCronSpec:    cfg.Sync.CronSpec,
		ShippingConcurrency: cfg.Sync.Concurrency,
		ShippingRunTimeout:  cfg.Sync.RunTimeout,
	})

	// -------- Controller 层 --------
	controllers := &Controllers{
		Shipping:    controller.NewShippingController(services.Shipping),
		Integration: controller.NewIntegrationController(services.Integration),
		Sync:        controller.NewSyncController(tasks),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Dispatcher:  dispatcher,
		Services:    services,
		Controllers: controllers,
		Tasks:       tasks,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(port string, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		log.Info("[Main] 服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("[Main] 服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Main] 正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("[Main] 服务强制关闭", zap.Error(err))
		return
	}

	log.Info("[Main] 服务已退出")
}
