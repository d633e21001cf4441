package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/config"
	"github.com/nexarise/backend/internal/database"
	"github.com/nexarise/backend/internal/handlers"
	"github.com/nexarise/backend/internal/jobs"
	"github.com/nexarise/backend/internal/middleware"
	"github.com/nexarise/backend/internal/routes"
	"github.com/nexarise/backend/internal/services/account"
	"github.com/nexarise/backend/internal/services/binary"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/services/level"
	"github.com/nexarise/backend/internal/services/notify"
	"github.com/nexarise/backend/internal/services/purchase"
	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/services/roi"
	"github.com/nexarise/backend/internal/services/tree"
	"github.com/nexarise/backend/internal/store"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	st := store.NewGorm(db)
	notifier := notify.LogNotifier{}

	// Engines
	ledgerSvc := ledger.NewService(st)
	treeSvc := tree.NewService(st, nil)
	roiSvc := roi.NewService(st, ledgerSvc, notifier)
	roiSvc.LargePayoutThreshold = decimal.NewFromFloat(cfg.Plan.LargePayoutThreshold)
	levelSvc := level.NewService(st, ledgerSvc)
	levelSvc.DefaultUnlockedLevels = cfg.Plan.DefaultUnlockedLevels
	levelSvc.BoosterWindowDays = cfg.Plan.BoosterWindowDays
	levelSvc.BoosterMinDirects = cfg.Plan.BoosterMinDirects
	binarySvc := binary.NewService(st, ledgerSvc)
	rankSvc := rank.NewService(st, ledgerSvc, notifier)
	purchaseSvc := purchase.NewService(st, ledgerSvc, levelSvc, binarySvc, rankSvc)
	accountSvc := account.NewService(st, treeSvc)

	// Redis backs the daily-run lock; without it each instance runs the
	// payout pass on its own dedupe guarantees.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if !cfg.Scheduler.DisableScheduler {
		scheduler, err := jobs.ScheduleRecurringJobs(cfg, st, roiSvc, rankSvc, redisClient)
		if err != nil {
			log.Fatalf("Failed to schedule recurring jobs: %v", err)
		}
		defer scheduler.Stop()
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	rateLimiter := middleware.NewRateLimiter(10, 20)
	defer rateLimiter.Stop()

	routes.RegisterRoutes(router, cfg, routes.Handlers{
		Account:  handlers.NewAccountHandler(accountSvc),
		Purchase: handlers.NewPurchaseHandler(purchaseSvc),
		Tree:     handlers.NewTreeHandler(treeSvc),
		Rank:     handlers.NewRankHandler(rankSvc),
		Wallet:   handlers.NewWalletHandler(ledgerSvc),
		Admin:    handlers.NewAdminHandler(treeSvc, roiSvc, rankSvc),
	}, rateLimiter)

	log.Printf("API server running on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
