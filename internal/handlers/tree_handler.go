package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nexarise/backend/internal/services/tree"
)

// TreeHandler handles binary tree exports
type TreeHandler struct {
	treeService *tree.Service
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService *tree.Service) *TreeHandler {
	return &TreeHandler{treeService: treeService}
}

// Export returns the depth-bounded subtree rooted at an account
func (h *TreeHandler) Export(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	depth, _ := strconv.Atoi(c.DefaultQuery("depth", "0"))

	view, err := h.treeService.ExportSubtree(c.Request.Context(), id, depth)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
