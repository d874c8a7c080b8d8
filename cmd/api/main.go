package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"neurostate/internal/config"
	"neurostate/internal/db"
	apihttp "neurostate/internal/http"
	"neurostate/internal/profile"
	"neurostate/internal/repository"
	"neurostate/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	catalog := profile.DefaultCatalog()
	if cfg.ProfilePresetsPath != "" {
		catalog, err = profile.LoadCatalog(cfg.ProfilePresetsPath)
		if err != nil {
			logger.Fatal("load profile presets", zap.String("path", cfg.ProfilePresetsPath), zap.Error(err))
		}
	}

	engineCfg, err := cfg.Engine()
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}

	var (
		opts        []service.Option
		profileRepo repository.ProfileRepository = repository.NewMemoryProfileRepository()
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		profileRepo = repository.NewPgProfileRepository(pool)
		opts = append(opts, service.WithArchive(repository.NewPgSnapshotRepository(pool)))
	} else {
		logger.Warn("DATABASE_URL not configured, snapshots are not archived")
	}

	var limiter service.AssessRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			opts = append(opts, service.WithCrisisFlagSource(service.NewRedisCrisisFlagSource(redisClient)))
			limiter = service.NewRedisAssessRateLimiter(redisClient, cfg.AssessRateWindow, cfg.AssessRateMax)
		}
		cancel()
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, 0)

	neurostateSvc := service.NewNeurostateService(engineCfg, logger, opts...)
	handler := apihttp.NewNeurostateHandler(logger, neurostateSvc, catalog, profileRepo, limiter)
	router := apihttp.NewRouter(logger, jwtSvc, handler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
