package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"arcadepress/internal/config"
)

// githubStub 模拟 GitHub OAuth 与 REST 接口
type githubStub struct {
	server *httptest.Server

	mu            sync.Mutex
	validCode     string
	token         string
	profile       map[string]any
	profileStatus int
	emails        []map[string]any
	profileCalls  int
	emailCalls    int
}

func newGitHubStub(t *testing.T) *githubStub {
	t.Helper()
	s := &githubStub{
		validCode:     "good-code",
		token:         "gho_test_token",
		profileStatus: http.StatusOK,
		profile: map[string]any{
			"id":         42,
			"login":      "octocat",
			"name":       "The Octocat",
			"avatar_url": "https://avatars.example.com/u/42",
			"bio":        "Hello from GitHub",
			"email":      nil,
		},
		emails: []map[string]any{
			{"email": "a@x", "primary": true, "verified": true, "visibility": "private"},
			{"email": "b@x", "primary": true, "verified": true, "visibility": "public"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", s.handleToken)
	mux.HandleFunc("/user", s.handleUser)
	mux.HandleFunc("/user/emails", s.handleEmails)
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *githubStub) config() *config.Config {
	return &config.Config{
		ProfileCacheTTL: time.Minute,
		ProviderTimeout: 5 * time.Second,
		AdminLogins:     []string{"root"},
		GitHub: config.GitHubConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080/account/github/login/callback",
			AuthURL:      s.server.URL + "/login/oauth/authorize",
			TokenURL:     s.server.URL + "/login/oauth/access_token",
			UserURL:      s.server.URL + "/user",
			EmailsURL:    s.server.URL + "/user/emails",
			Scopes:       []string{"user:email", "read:user"},
		},
	}
}

func (s *githubStub) set(fn func(s *githubStub)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *githubStub) calls() (profile, emails int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileCalls, s.emailCalls
}

func (s *githubStub) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	if r.PostForm.Get("code") != s.validCode || r.PostForm.Get("client_id") != "client-id" {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"access_token": s.token,
		"token_type":   "bearer",
		"scope":        "read:user,user:email",
	})
}

func (s *githubStub) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileCalls++

	if r.Header.Get("Authorization") != "Bearer "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if s.profileStatus != http.StatusOK {
		w.WriteHeader(s.profileStatus)
		_, _ = w.Write([]byte(`{"message":"Server Error"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(s.profile)
}

func (s *githubStub) handleEmails(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailCalls++

	if r.Header.Get("Authorization") != "Bearer "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.emails)
}
