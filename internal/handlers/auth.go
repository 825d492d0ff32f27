package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"arcadepress/internal/middleware"
	"arcadepress/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionStateKey = "oauth_state"
	sessionNextKey  = "oauth_next"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      *slog.Logger
}

func NewAuthHandler(accounts *services.AccountService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// safeNext 只接受站内相对路径，防止开放重定向
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return ""
	}
	return next
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "account/login.html", gin.H{
		"Title": "Sign in",
		"Next":  safeNext(c.Query("next")),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.AddFlash("You have been signed out.")
	_ = session.Save()
	c.Redirect(http.StatusFound, "/")
}

// GitHubLogin 发起 GitHub OAuth 登录
func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	state, err := generateStateToken()
	if err != nil {
		handleError(c, err)
		return
	}

	// 将 state 存储到 session 中,用于验证回调
	session := sessions.Default(c)
	session.Set(sessionStateKey, state)
	if next := safeNext(c.Query("next")); next != "" {
		session.Set(sessionNextKey, next)
	} else {
		session.Delete(sessionNextKey)
	}
	if err := session.Save(); err != nil {
		handleError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.accounts.AuthCodeURL(state))
}

// GitHubCallback 处理 GitHub OAuth 回调。任何失败都回到登录页，不会返回 5xx
func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	session := sessions.Default(c)
	savedState, _ := session.Get(sessionStateKey).(string)
	next, _ := session.Get(sessionNextKey).(string)

	// 清除 state，一次性使用
	session.Delete(sessionStateKey)
	session.Delete(sessionNextKey)

	if savedState == "" || c.Query("state") != savedState {
		h.loginFailed(c, session, "invalid state")
		return
	}
	if e := c.Query("error"); e != "" {
		h.loginFailed(c, session, e)
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.loginFailed(c, session, err.Error())
		return
	}

	session.Set(middleware.SessionUserKey, user.ID)
	session.AddFlash("Signed in as " + user.DisplayName() + ".")
	if err := session.Save(); err != nil {
		h.log.Error("Failed to save session", slog.Any("error", err))
	}

	if next = safeNext(next); next == "" {
		next = "/"
	}
	c.Redirect(http.StatusFound, next)
}

func (h *AuthHandler) loginFailed(c *gin.Context, session sessions.Session, reason string) {
	h.log.Warn("GitHub sign-in failed", slog.String("reason", reason))
	session.AddFlash("GitHub sign-in failed. Please try again.")
	_ = session.Save()
	c.Redirect(http.StatusFound, middleware.LoginPath)
}
