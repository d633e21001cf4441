package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexarise/backend/internal/services/account"
)

// AccountHandler handles enrollment and account lookups
type AccountHandler struct {
	accountService *account.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *account.Service) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// Enroll creates a new account under a sponsor and places it in the tree
func (h *AccountHandler) Enroll(c *gin.Context) {
	var req account.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := h.accountService.Enroll(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, acct)
}

// Get returns an account summary
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	acct, err := h.accountService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, acct)
}
