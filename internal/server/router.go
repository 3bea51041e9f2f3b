package server

import (
	"auctions/internal/session"
	handler "auctions/services/auction/handler"
	"auctions/web"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies are the collaborators SetupRouter wires into handlers
type Dependencies struct {
	Auctions handler.AuctionServiceInterface
	Accounts handler.AccountServiceInterface
	Sessions *session.Manager
	DB       *gorm.DB

	// Metrics serves /metrics when set
	Metrics *Metrics

	// Redis backs rate limiting of form posts; nil disables it
	Redis      *redis.Client
	RateLimit  int
	RateWindow time.Duration
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery()) // recover from panics
	router.Use(SessionMiddleware(deps.Sessions, deps.Accounts))
	router.Use(RequestLoggerMiddleware) // custom request logging
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
		router.GET("/metrics", deps.Metrics.Handler())
	}

	router.SetHTMLTemplate(web.MustTemplates())

	listingHandler := handler.NewListingHandler(deps.Auctions)
	authHandler := handler.NewAuthHandler(deps.Accounts, deps.Sessions)
	limit := RedisRateLimit(deps.Redis, deps.RateLimit, deps.RateWindow)

	router.GET("/", listingHandler.IndexHandler)
	router.GET("/healthz", HealthHandler(deps.DB))

	categories := router.Group("/categories")
	{
		categories.GET("", listingHandler.CategoriesHandler)
		categories.GET("/:name", listingHandler.CategoryHandler)
	}

	listings := router.Group("/listings")
	{
		listings.GET("/:id", listingHandler.ListingHandler)
		listings.POST("/:id", limit, listingHandler.ListingPostHandler)
	}

	member := router.Group("", RequireLogin)
	{
		member.GET("/new", listingHandler.NewListingFormHandler)
		member.POST("/new", limit, listingHandler.CreateListingHandler)
		member.GET("/watchlist", listingHandler.WatchlistHandler)
	}

	router.GET("/login", authHandler.LoginFormHandler)
	router.POST("/login", limit, authHandler.LoginHandler)
	router.GET("/logout", authHandler.LogoutHandler)
	router.GET("/register", authHandler.RegisterFormHandler)
	router.POST("/register", limit, authHandler.RegisterHandler)

	return router
}
