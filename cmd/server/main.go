// Package main runs the deals marketplace HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dealspot/backend/config"
	"github.com/dealspot/backend/internal/analytics"
	"github.com/dealspot/backend/internal/auth"
	"github.com/dealspot/backend/internal/deals"
	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/redemptions"
	"github.com/dealspot/backend/internal/reviews"
	"github.com/dealspot/backend/internal/stores"
	"github.com/dealspot/backend/internal/subscriptions"
	"github.com/dealspot/backend/internal/users"
	"github.com/dealspot/backend/internal/worker"
	"github.com/dealspot/backend/pkg/database"
	"github.com/dealspot/backend/pkg/queue"
	"github.com/dealspot/backend/pkg/redis"
	"github.com/dealspot/backend/pkg/response"
	"github.com/dealspot/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ImagesBucket:         cfg.AWS.ImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	recorder := analytics.NewRecorder(jobQueue, logger)

	// Auth / users
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, recorder, logger)
	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo, authRepo, logger)

	// Stores
	storeRepo := stores.NewRepository(pool)
	storeHandler := stores.NewHandler(storeRepo, logger)
	ownStore := stores.RequireOwnership(storeRepo)

	// Subscriptions
	subRepo := subscriptions.NewRepository(pool)
	subHandler := subscriptions.NewHandler(subRepo, recorder, logger)

	// Deals
	dealRepo := deals.NewRepository(pool, subRepo)
	dealHandler := deals.NewHandler(dealRepo, storeRepo, subRepo, recorder, s3Client, logger)

	// Redemptions
	redemptionRepo := redemptions.NewRepository(pool)
	redemptionHandler := redemptions.NewHandler(redemptionRepo, dealRepo, storeRepo, recorder, logger)

	// Reviews
	reviewRepo := reviews.NewRepository(pool)
	reviewHandler := reviews.NewHandler(reviewRepo, recorder, logger)

	// Analytics reporting
	analyticsRepo := analytics.NewRepository(pool)
	analyticsHandler := analytics.NewHandler(analyticsRepo, subRepo, dealRepo, logger)
	eventProcessor := worker.NewEventProcessor(jobQueue, analyticsRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public browsing. OptionalJWT attributes analytics events to logged-in
	// users without requiring a token.
	public := router.Group("")
	public.Use(middleware.OptionalJWT(jwtService))
	{
		public.GET("/deals", dealHandler.List)
		public.GET("/deals/categories/counts", dealHandler.CategoryCounts)
		public.GET("/deals/:id", dealHandler.GetByID)
		public.POST("/deals/:id/click", dealHandler.Click)
		public.POST("/deals/:id/share", dealHandler.Share)

		public.GET("/stores", storeHandler.List)
		public.GET("/stores/categories/counts", storeHandler.CategoryCounts)
		public.GET("/stores/:id", storeHandler.GetByID)
		public.POST("/stores/:id/click", storeHandler.Click)
		public.GET("/stores/:id/deals", dealHandler.ListByStore)
		public.GET("/stores/:id/reviews", reviewHandler.ListByStore)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)
		api.GET("/users/me", userHandler.Me)
		api.PUT("/users/me", userHandler.UpdateMe)
		api.GET("/users/me/saved-deals", userHandler.SavedDeals)
		api.GET("/users/me/favorite-stores", userHandler.FavoriteStores)
		api.POST("/users/me/favorite-stores/:storeID", userHandler.AddFavoriteStore)
		api.DELETE("/users/me/favorite-stores/:storeID", userHandler.RemoveFavoriteStore)

		// Stores
		api.POST("/stores", middleware.RequireRole("store_owner", "admin"), storeHandler.Create)
		api.PUT("/stores/:id", ownStore, storeHandler.Update)
		api.DELETE("/stores/:id", ownStore, storeHandler.Deactivate)

		// Subscriptions
		api.GET("/stores/:id/subscription", ownStore, subHandler.GetByStore)
		api.POST("/stores/:id/subscription", ownStore, subHandler.Activate)
		api.DELETE("/stores/:id/subscription", ownStore, subHandler.Cancel)

		// Deals
		api.POST("/stores/:id/deals", ownStore, dealHandler.Create)
		api.PUT("/deals/:id", dealHandler.Update)
		api.DELETE("/deals/:id", dealHandler.Deactivate)
		api.POST("/deals/:id/images", dealHandler.UploadImage)
		api.POST("/deals/:id/save", dealHandler.Save)
		api.DELETE("/deals/:id/save", dealHandler.Unsave)

		// Redemptions
		api.POST("/deals/:id/redemptions", redemptionHandler.Issue)
		api.POST("/redemptions/consume", middleware.RequireRole("store_owner", "admin"), redemptionHandler.Consume)
		api.GET("/redemptions/validate", middleware.RequireRole("store_owner", "admin"), redemptionHandler.Validate)
		api.POST("/redemptions/:id/cancel", redemptionHandler.Cancel)
		api.GET("/redemptions/me", redemptionHandler.ListMine)

		// Reviews
		api.POST("/stores/:id/reviews", reviewHandler.Create)
		api.DELETE("/stores/:id/reviews", reviewHandler.Delete)

		// Analytics (plan-gated per store)
		api.GET("/stores/:id/analytics", ownStore, analyticsHandler.StoreAnalytics)
		api.GET("/stores/:id/deals/:dealID/analytics", ownStore, analyticsHandler.DealAnalytics)

		// Admin
		api.GET("/admin/analytics", middleware.RequireRole("admin"), analyticsHandler.PlatformSummary)
		api.GET("/admin/deals/pending", middleware.RequireRole("admin"), dealHandler.PendingApproval)
		api.POST("/admin/deals/:id/approve", middleware.RequireRole("admin"), dealHandler.Approve)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process event processor so a single binary works without the
	// dedicated worker deployment.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go eventProcessor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
