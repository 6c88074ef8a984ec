package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "shorturl-registry/docs"
	"shorturl-registry/internal/config"
	"shorturl-registry/internal/handler"
	"shorturl-registry/internal/middleware"
	"shorturl-registry/internal/registry"
	"shorturl-registry/internal/stats"
	"shorturl-registry/internal/store"
	"shorturl-registry/pkg/database"
	"shorturl-registry/pkg/logger"
	"shorturl-registry/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// @title 短链接注册表 API
// @version 1.0
// @description 创建带有效期的短链接、跳转并统计访问。
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Println("配置加载失败:", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Options{
		Level:      cfg.Log.Level,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugaredLogger); err != nil {
		sugaredLogger.Errorf("服务异常退出: %v", err)
		os.Exit(1)
	}
	sugaredLogger.Info("服务已停止")
}

func run(ctx context.Context, cfg *config.Config, sugaredLogger *zap.SugaredLogger) error {
	slot, cleanup, err := openSlot(cfg, sugaredLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	storeOpts := []store.Option{store.WithKey(cfg.Store.Key), store.WithLogger(sugaredLogger)}
	if cfg.Store.DecodeCacheMB > 0 {
		cache, err := store.NewDecodeCache(int64(cfg.Store.DecodeCacheMB) << 20)
		if err != nil {
			return err
		}
		defer cache.Close()
		storeOpts = append(storeOpts, store.WithDecodeCache(cache))
	}

	reg := registry.New(
		store.NewSlotStore(slot, storeOpts...),
		registry.WithBaseURL(cfg.Registry.BaseURL),
		registry.WithDefaultValidity(cfg.Registry.DefaultValidity()),
		registry.WithMaxBatchSize(cfg.Registry.MaxBatchSize),
		registry.WithMaxAttempts(cfg.Registry.MaxGenerateAttempts),
		registry.WithLogger(sugaredLogger),
	)

	poller := stats.NewPoller(reg, cfg.Stats.RefreshInterval, sugaredLogger)
	poller.Start()
	defer poller.Stop()

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		return err
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))
	router.Use(middleware.RateLimit(&cfg.RateLimit))

	handler.RegisterRoutes(router, handler.NewShortLinkHandler(reg, poller, cfg.Redirect.CountdownSeconds, sugaredLogger))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("服务关闭失败: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openSlot 按配置选择存储后端，返回的 cleanup 负责关闭连接
func openSlot(cfg *config.Config, sugaredLogger *zap.SugaredLogger) (store.Slot, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		sugaredLogger.Warn("使用内存存储，重启后数据会丢失")
		return store.NewMemorySlot(), noop, nil

	case config.BackendRedis:
		rdb, err := redis.NewRedisClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			return nil, noop, err
		}
		sugaredLogger.Info("✅ Redis 连接成功")
		return store.NewRedisSlot(rdb), func() {
			if err := rdb.Close(); err != nil {
				sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
			}
		}, nil

	case config.BackendMySQL, config.BackendSQLite:
		gdb, err := openDatabase(cfg)
		if err != nil {
			return nil, noop, err
		}
		sugaredLogger.Infof("✅ 数据库连接成功 (%s)", cfg.Store.Backend)

		slot, err := store.NewGormSlot(gdb)
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, noop, err
		}
		return slot, func() {
			if err := sqlDB.Close(); err != nil {
				sugaredLogger.Errorf("关闭数据库连接失败: %v", err)
			}
		}, nil
	}

	return nil, noop, fmt.Errorf("不支持的存储后端: %q", cfg.Store.Backend)
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Store.Backend == config.BackendMySQL {
		return database.InitMySQL(database.MySQLOptions{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Name:     cfg.Database.Name,
			Charset:  cfg.Database.Charset,
		})
	}
	return database.InitSQLite(cfg.Database.Path)
}
