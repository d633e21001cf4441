package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexarise/backend/internal/config"
	"github.com/nexarise/backend/internal/handlers"
	"github.com/nexarise/backend/internal/middleware"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Account  *handlers.AccountHandler
	Purchase *handlers.PurchaseHandler
	Tree     *handlers.TreeHandler
	Rank     *handlers.RankHandler
	Wallet   *handlers.WalletHandler
	Admin    *handlers.AdminHandler
}

// RegisterRoutes wires all API routes. Public routes sit behind per-IP rate
// limiting; admin routes additionally require the operator key.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, h Handlers, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		api.POST("/accounts", h.Account.Enroll)
		api.GET("/accounts/:id", h.Account.Get)

		api.POST("/purchases", h.Purchase.Create)

		api.GET("/tree/:id", h.Tree.Export)

		api.GET("/ranks/:id/eligibility", h.Rank.Eligibility)

		api.GET("/wallet/:id/transactions", h.Wallet.Transactions)
	}

	admin := router.Group("/api/admin")
	admin.Use(rateLimiter.IPRateLimiterMiddleware(), middleware.AdminKeyMiddleware(cfg.Admin.AdminKeyHash))
	{
		admin.POST("/placements", h.Admin.PlaceNode)
		admin.POST("/recompute-volumes", h.Admin.RecomputeVolumes)
		admin.POST("/roi-run", h.Admin.RunRoiDistribution)
		admin.POST("/ranks/:id/reward", h.Admin.RewardRank)
	}
}
