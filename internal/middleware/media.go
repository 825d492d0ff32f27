package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 解压出的游戏运行在独立的沙箱源里，不能读取站点 cookie 或操作父页面
const gameSandboxCSP = "sandbox allow-scripts allow-pointer-lock allow-popups; frame-ancestors 'self'"

// MediaHeaders 为 /media 下的文件加安全响应头
func MediaHeaders(mediaURL string) gin.HandlerFunc {
	gamesPrefix := strings.TrimSuffix(mediaURL, "/") + "/games/"
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		if strings.HasPrefix(c.Request.URL.Path, gamesPrefix) {
			c.Header("Content-Security-Policy", gameSandboxCSP)
		}
		c.Next()
	}
}
