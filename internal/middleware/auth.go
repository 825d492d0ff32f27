package middleware

import (
	"net/http"
	"net/url"

	"arcadepress/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
	LoginPath      = "/account/login"
)

// LoadUser retrieves user from session and sets to context
func LoadUser(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)

		if userID != nil {
			var user models.User
			if err := conn.WithContext(c.Request.Context()).First(&user, userID).Error; err == nil {
				c.Set(CheckUserKey, &user)
			} else {
				// 账号已不存在，清掉失效的会话
				session.Delete(SessionUserKey)
				_ = session.Save()
			}
		}
		c.Next()
	}
}

// CurrentUser 未登录时返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if u, ok := c.Get(CheckUserKey); ok {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	return nil
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired 需要在 AuthRequired 之后使用
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			c.HTML(http.StatusForbidden, "error.html", gin.H{
				"CurrentUser": CurrentUser(c),
				"Code":        http.StatusForbidden,
				"Error":       "You do not have permission to view this page.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthRequiredJSON 用于 JSON 接口，未登录返回 401 而不是跳转
func AuthRequiredJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}
