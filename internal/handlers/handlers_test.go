package handlers

import (
	"html/template"
	"net/http/httptest"
	"strings"
	"testing"

	"arcadepress/internal/config"
	"arcadepress/internal/db/dbtest"
	"arcadepress/internal/logger"
	"arcadepress/internal/middleware"
	"arcadepress/internal/models"
	"arcadepress/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 测试用模板只输出状态和错误信息
const testTemplates = `
{{define "error.html"}}error {{.Code}}: {{.Error}}{{end}}
{{define "account/login.html"}}login{{end}}
{{define "webgame/game_play.html"}}play {{.Game.Slug}} {{.Source}}{{end}}
{{define "webgame/game_upload.html"}}upload{{range $field, $msgs := .Errors}} {{$field}}:{{range $msgs}} {{.}}{{end}}{{end}}{{end}}
`

type testApp struct {
	conn   *gorm.DB
	engine *gin.Engine
	root   string
}

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestApp 构建带 session 的 gin 引擎。as 非空时请求以该用户身份执行
func newTestApp(t *testing.T, as func() *models.User) *testApp {
	t.Helper()
	conn := dbtest.New(t)

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(testTemplates)))
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(func(c *gin.Context) {
		if as != nil {
			if u := as(); u != nil {
				c.Set(middleware.CheckUserKey, u)
			}
		}
		c.Next()
	})
	return &testApp{conn: conn, engine: r, root: t.TempDir()}
}

func (a *testApp) do(method, target, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func createUser(t *testing.T, conn *gorm.DB, uid, login string) *models.User {
	t.Helper()
	u := &models.User{UID: uid, Username: login, Role: models.RoleUser}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func testAccounts(t *testing.T, conn *gorm.DB) *services.AccountService {
	t.Helper()
	cfg := &config.Config{
		ProfileCacheTTL: 0,
		GitHub: config.GitHubConfig{
			ClientID:    "client-id",
			AuthURL:     "http://127.0.0.1:0/authorize",
			TokenURL:    "http://127.0.0.1:0/token",
			RedirectURL: "http://localhost/account/github/login/callback",
		},
	}
	vault, err := services.NewTokenVault("test-secret")
	require.NoError(t, err)
	return services.NewAccountService(conn, services.NewGitHubClient(cfg.GitHub, 0), vault, cfg, logger.Discard())
}
