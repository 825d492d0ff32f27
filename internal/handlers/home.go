package handlers

import (
	"net/http"

	"arcadepress/internal/services"

	"github.com/gin-gonic/gin"
)

const homeItems = 5

type HomeHandler struct {
	posts *services.PostService
	games *services.GameService
}

func NewHomeHandler(posts *services.PostService, games *services.GameService) *HomeHandler {
	return &HomeHandler{posts: posts, games: games}
}

// Index 首页：最新文章和最新游戏
func (h *HomeHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()

	posts, err := h.posts.Latest(ctx, homeItems)
	if err != nil {
		handleError(c, err)
		return
	}
	games, err := h.games.Latest(ctx, homeItems)
	if err != nil {
		handleError(c, err)
		return
	}

	Render(c, http.StatusOK, "index.html", gin.H{
		"Title": "Home",
		"Posts": posts,
		"Games": games,
	})
}

// NotFound 未匹配的路由
func NotFound(c *gin.Context) {
	RenderError(c, http.StatusNotFound, "Page not found.")
}
