package handlers

import (
	"net/http"

	"arcadepress/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	games *services.GameService
}

func NewAdminHandler(games *services.GameService) *AdminHandler {
	return &AdminHandler{games: games}
}

// PendingGames 待审核游戏列表
func (h *AdminHandler) PendingGames(c *gin.Context) {
	page, err := h.games.ListPending(c.Request.Context(), pageParam(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "admin/games.html", gin.H{
		"Title": "Pending games",
		"Games": page,
	})
}

// ToggleApproval 审核通过/撤销审核
func (h *AdminHandler) ToggleApproval(c *gin.Context) {
	ctx := c.Request.Context()
	game, err := h.games.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}

	game, err = h.games.SetApproval(ctx, currentUser(c), game.Slug, !game.IsApproved)
	if err != nil {
		handleError(c, err)
		return
	}

	if game.IsApproved {
		Flash(c, "Approved "+game.Title+".")
	} else {
		Flash(c, "Approval withdrawn for "+game.Title+".")
	}

	redirect := "/admin/games"
	if next := safeNext(c.PostForm("next")); next != "" {
		redirect = next
	}
	c.Redirect(http.StatusFound, redirect)
}
