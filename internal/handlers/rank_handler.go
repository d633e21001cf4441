package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexarise/backend/internal/services/rank"
)

// RankHandler handles rank eligibility lookups
type RankHandler struct {
	rankService *rank.Service
}

// NewRankHandler creates a new rank handler
func NewRankHandler(rankService *rank.Service) *RankHandler {
	return &RankHandler{rankService: rankService}
}

// Eligibility returns the account's current rank, live metrics, and progress
// toward the next tier
func (h *RankHandler) Eligibility(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	evaluation, err := h.rankService.Evaluate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, evaluation)
}
