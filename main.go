package main

import (
	account "auctions/internal/accountService"
	auction "auctions/internal/auctionService"
	"auctions/internal/config"
	"auctions/internal/database"
	"auctions/internal/repository"
	"auctions/internal/server"
	"auctions/internal/session"
	"auctions/utils"
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}
	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Fatal("invalid LOG_LEVEL", map[string]any{"level": cfg.LogLevel, "error": err.Error()})
	}
	gin.SetMode(gin.ReleaseMode)

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		utils.Fatal("failed to open database", map[string]any{"driver": cfg.DBDriver, "error": err.Error()})
	}
	if err := database.Migrate(db); err != nil {
		utils.Fatal("failed to migrate database", map[string]any{"error": err.Error()})
	}
	if err := database.SeedCategories(db, cfg.SeedCategories); err != nil {
		utils.Fatal("failed to seed categories", map[string]any{"error": err.Error()})
	}

	repo := repository.NewGormRepo(db)
	auctionSvc := auction.NewAuctionService(repo)
	accountSvc := account.NewAccountService(repo, cfg.BcryptCost)
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)

	router := server.SetupRouter(server.Dependencies{
		Auctions:   auctionSvc,
		Accounts:   accountSvc,
		Sessions:   sessions,
		DB:         db,
		Metrics:    server.NewMetrics(),
		Redis:      newRedis(cfg),
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
	})

	utils.Info("starting auction server", map[string]any{"port": cfg.Port, "driver": cfg.DBDriver})
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

// newRedis connects the rate limiter store. It returns nil when Redis is not
// configured or not reachable, which turns rate limiting off.
func newRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		utils.Warn("redis unavailable, rate limiting disabled", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
