package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/services/roi"
	"github.com/nexarise/backend/internal/services/tree"
)

// AdminHandler exposes operator-only actions: manual placement, volume
// recalculation, on-demand payout runs, and manual rank rewards.
type AdminHandler struct {
	treeService *tree.Service
	roiService  *roi.Service
	rankService *rank.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(treeService *tree.Service, roiService *roi.Service, rankService *rank.Service) *AdminHandler {
	return &AdminHandler{
		treeService: treeService,
		roiService:  roiService,
		rankService: rankService,
	}
}

// PlaceNode places an account at an explicit parent and leg, overriding the
// breadth-first strategy. The slot must be open.
func (h *AdminHandler) PlaceNode(c *gin.Context) {
	var input struct {
		AccountID uuid.UUID       `json:"account_id" binding:"required"`
		ParentID  uuid.UUID       `json:"parent_id" binding:"required"`
		Position  models.Position `json:"position" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.treeService.Place(c.Request.Context(), input.AccountID, input.ParentID, input.Position)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, node)
}

// RecomputeVolumes rebuilds every node's leg volumes bottom-up from own
// volumes. Carry balances are left untouched.
func (h *AdminHandler) RecomputeVolumes(c *gin.Context) {
	updated, err := h.treeService.RecomputeAllVolumes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nodes_updated": updated})
}

// RunRoiDistribution triggers a payout pass for today. Packages already paid
// today are reported as skipped, so re-running is harmless.
func (h *AdminHandler) RunRoiDistribution(c *gin.Context) {
	summary, err := h.roiService.RunDailyDistribution(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RewardRank manually grants a rank tier's one-time reward to an account
func (h *AdminHandler) RewardRank(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input struct {
		RankTierID uuid.UUID `json:"rank_tier_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	achievement, err := h.rankService.DistributeRankReward(c.Request.Context(), id, input.RankTierID, "admin")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, achievement)
}
