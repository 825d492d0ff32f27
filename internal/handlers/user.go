package handlers

import (
	"log/slog"
	"net/http"

	"arcadepress/internal/models"
	"arcadepress/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	accounts *services.AccountService
	posts    *services.PostService
	games    *services.GameService
	log      *slog.Logger
}

func NewUserHandler(accounts *services.AccountService, posts *services.PostService, games *services.GameService, log *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, posts: posts, games: games, log: log}
}

// Profile - 个人主页 /account/profile，?refresh=1 强制从 GitHub 重新同步
func (h *UserHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	force := c.Query("refresh") == "1"

	synced, err := h.accounts.SyncProfile(ctx, user, force)
	if err != nil {
		h.log.Warn("Profile sync failed", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
	}
	if force {
		if synced {
			Flash(c, "Profile refreshed from GitHub.")
		} else {
			Flash(c, "Could not refresh your profile from GitHub. Showing saved details.")
		}
		c.Redirect(http.StatusFound, "/account/profile")
		return
	}

	// 获取 tab 参数，默认为 posts
	tab := c.DefaultQuery("tab", "posts")

	var games []models.Game
	data := gin.H{
		"Title":     user.DisplayName(),
		"User":      user,
		"ActiveTab": tab,
	}
	if tab == "games" {
		games, err = h.games.ListByOwner(ctx, user.ID)
		if err != nil {
			handleError(c, err)
			return
		}
		data["Games"] = games
	} else {
		posts, err := h.posts.ListByAuthor(ctx, user.ID, pageParam(c))
		if err != nil {
			handleError(c, err)
			return
		}
		data["Posts"] = posts
	}

	Render(c, http.StatusOK, "account/profile.html", data)
}
