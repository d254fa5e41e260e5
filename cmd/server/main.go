package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/config"
	"github.com/bitfantasy/nimo-rms/internal/middleware"
	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/handler"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"github.com/bitfantasy/nimo-rms/internal/rms/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-rms service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Device{},
		&entity.WorkOrder{},
		&entity.WorkOrderEvent{},
		&entity.Inspection{},
		&entity.RepairRecord{},
		&entity.InventoryTransaction{},
		&entity.Attachment{},
		&entity.PublicConfirmToken{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// Seed: 默认OWNER账号（仅当不存在任何OWNER时）
	seedDefaultOwner(db, zapLogger)

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	// 后台任务：定期清理过期确认令牌
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepExpiredTokens(sweepCtx, services.PublicConfirm, cfg.Confirm.SweepInterval, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// seedDefaultOwner 首次启动时创建默认OWNER账号，凭据来自环境变量
func seedDefaultOwner(db *gorm.DB, zapLogger *zap.Logger) {
	var count int64
	db.Model(&entity.User{}).Where("role = ?", entity.RoleOwner).Count(&count)
	if count > 0 {
		return
	}

	email := config.GetEnvOrDefault("OWNER_EMAIL", "owner@example.com")
	password := config.GetEnvOrDefault("OWNER_PASSWORD", "changeme")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zapLogger.Error("Failed to hash default owner password", zap.Error(err))
		return
	}

	owner := &entity.User{
		ID:           uuid.New().String()[:32],
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Owner",
		Role:         entity.RoleOwner,
		Status:       entity.UserStatusActive,
	}
	if err := db.Create(owner).Error; err != nil {
		zapLogger.Error("Failed to seed default owner", zap.Error(err))
		return
	}
	zapLogger.Info("Seeded default owner account", zap.String("email", email))
}

// sweepExpiredTokens 定期清理过期且未使用的确认令牌
func sweepExpiredTokens(ctx context.Context, svc *service.PublicConfirmService, interval time.Duration, zapLogger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := svc.SweepExpiredTokens(ctx)
			if err != nil {
				zapLogger.Warn("Token sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				zapLogger.Info("Swept expired confirm tokens", zap.Int64("deleted", deleted))
			}
		}
	}
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证（无需登录）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// 匿名确认（无需登录）
		public := v1.Group("/public")
		{
			public.GET("/confirm/:token", h.PublicConfirm.Get)
			public.POST("/confirm/:token", h.PublicConfirm.Confirm)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.GET("/auth/profile", h.Auth.Profile)

			// 用户管理（仅OWNER，服务层二次校验）
			users := authorized.Group("/users")
			users.Use(middleware.RequireRole(entity.RoleOwner))
			{
				users.POST("", h.User.Create)
				users.GET("", h.User.List)
				users.PUT("/:id/status", h.User.SetStatus)
			}

			// 工单
			workOrders := authorized.Group("/work-orders")
			{
				workOrders.POST("", h.WorkOrder.Create)
				workOrders.GET("", h.WorkOrder.List)
				workOrders.GET("/:id", h.WorkOrder.Get)
				workOrders.PATCH("/:id", h.WorkOrder.Update)
				workOrders.POST("/:id/actions", h.WorkOrder.ExecuteAction)
				workOrders.POST("/:id/assign", h.WorkOrder.Assign)
				workOrders.GET("/:id/events", h.WorkOrder.ListEvents)
				workOrders.GET("/:id/attachments", h.Attachment.ListByWorkOrder)
				workOrders.POST("/:id/confirm-token", h.PublicConfirm.RequestToken)
			}

			// 附件
			attachments := authorized.Group("/attachments")
			{
				attachments.POST("", h.Attachment.Upload)
				attachments.GET("/:id/download", h.Attachment.Download)
			}
		}
	}
}
