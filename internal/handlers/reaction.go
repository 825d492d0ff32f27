package handlers

import (
	"errors"
	"net/http"

	"arcadepress/internal/apperror"
	"arcadepress/internal/services"
	"arcadepress/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	reactions *services.ReactionService
}

func NewReactionHandler(reactions *services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

type reactionRequest struct {
	ReactionType string `json:"reaction_type" form:"reaction_type"`
}

// React 点赞/点踩 POST /blog/react/:type/:id，body {"reaction_type":"like"|"dislike"}
func (h *ReactionHandler) React(c *gin.Context) {
	id, ok := utils.StringToUint(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	var req reactionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reaction"})
		return
	}

	user := currentUser(c)
	var (
		counts services.ReactionCounts
		err    error
	)
	switch c.Param("type") {
	case "post":
		counts, err = h.reactions.ReactToPost(c.Request.Context(), user, id, req.ReactionType)
	case "comment":
		counts, err = h.reactions.ReactToComment(c.Request.Context(), user, id, req.ReactionType)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, counts)
	case errors.Is(err, apperror.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reaction"})
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
