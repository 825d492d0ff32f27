package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arcadepress/internal/config"
	"arcadepress/internal/logger"
	"arcadepress/internal/services"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	stubCode  = "good-code"
	stubToken = "gho_handler_token"
)

// newGitHubStub 模拟 GitHub 的 token、/user、/user/emails 接口
func newGitHubStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != stubCode {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": stubToken, "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+stubToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42, "login": "octocat", "name": "The Octocat"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"email": "octocat@example.com", "primary": true, "verified": true, "visibility": "public"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// stubAccounts 账号服务指向 GitHub stub
func stubAccounts(t *testing.T, conn *gorm.DB, srv *httptest.Server) *services.AccountService {
	t.Helper()
	cfg := &config.Config{
		ProfileCacheTTL: time.Minute,
		GitHub: config.GitHubConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost/account/github/login/callback",
			AuthURL:      srv.URL + "/login/oauth/authorize",
			TokenURL:     srv.URL + "/login/oauth/access_token",
			UserURL:      srv.URL + "/user",
			EmailsURL:    srv.URL + "/user/emails",
			Scopes:       []string{"user:email", "read:user"},
		},
	}
	vault, err := services.NewTokenVault("test-secret")
	require.NoError(t, err)
	return services.NewAccountService(conn, services.NewGitHubClient(cfg.GitHub, 5*time.Second), vault, cfg, logger.Discard())
}
