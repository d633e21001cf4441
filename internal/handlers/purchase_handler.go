package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/services/purchase"
)

// PurchaseHandler handles package purchase events
type PurchaseHandler struct {
	purchaseService *purchase.Service
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(purchaseService *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// Create funds a package purchase and runs the distribution chain. The
// response reports each distribution step individually.
func (h *PurchaseHandler) Create(c *gin.Context) {
	var input struct {
		AccountID     uuid.UUID       `json:"account_id" binding:"required"`
		PackageTypeID uuid.UUID       `json:"package_type_id" binding:"required"`
		Amount        decimal.Decimal `json:"amount" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.purchaseService.PurchasePackage(c.Request.Context(), input.AccountID, input.PackageTypeID, input.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, outcome)
}
