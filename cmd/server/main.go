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

	"rollout/internal/api"
	"rollout/internal/config"
	"rollout/internal/metrics"
	"rollout/internal/model"
	"rollout/internal/repository"
	"rollout/internal/service"
	"rollout/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("application startup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Auth.SignedKey != "" {
		service.SignedKey = []byte(cfg.Auth.SignedKey)
	}

	rdb, err := initRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	db, err := initDB(cfg.MySQL)
	if err != nil {
		return err
	}

	featureRepo := repository.NewFeaturesRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	if err := bootstrapAdmin(cfg, accountRepo); err != nil {
		return err
	}

	allowlist := cfg.Allowlist()
	observer := metrics.NewPrometheusObserver()

	svc := service.NewFeatureService(db, featureRepo, auditRepo, allowlist, observer)
	authSvc := service.NewAuthService(rdb, accountRepo, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	r := api.RegisterRoutes(
		api.NewFeatureHandler(svc),
		api.NewAdminHandler(svc),
		api.NewAuthHandler(authSvc),
		rdb,
		cfg.RateLimit.RequestsPerSecond,
		cfg.Server.Environment,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}

// -- Infrastructure Initializers --

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func initDB(cfg config.MySQLConfig) (*gorm.DB, error) {
	// Overrides may reference slugs that are not in the catalog, so the schema
	// must never gain a foreign key from the override tables to features.
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	// Simple auto-migrate for dev convenience
	err = db.AutoMigrate(
		&model.Feature{},
		&model.UserFeature{},
		&model.TeamFeature{},
		&model.OverrideAudit{},
		&model.Account{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// bootstrapAdmin seeds the admin account on first start so the control plane
// is reachable before any operator provisioning exists.
func bootstrapAdmin(cfg *config.Config, accounts repository.AccountInterface) error {
	ctx := context.Background()
	existing, err := accounts.FindByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	password := cfg.Auth.BootstrapPassword
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	logger.Info("seeding bootstrap admin account")
	return accounts.Create(ctx, &model.Account{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
	})
}
