package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nexarise/backend/internal/services/ledger"
)

// WalletHandler handles ledger history lookups
type WalletHandler struct {
	ledgerService *ledger.Service
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(ledgerService *ledger.Service) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

// Transactions returns an account's ledger history, newest first
func (h *WalletHandler) Transactions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	transactions, total, err := h.ledgerService.History(c.Request.Context(), id, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}
