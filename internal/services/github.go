package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"arcadepress/internal/config"

	"golang.org/x/oauth2"
)

var (
	ErrMissingCode = errors.New("github: missing authorization code")
	ErrNoToken     = errors.New("github: no access token")
	ErrNoProfile   = errors.New("github: no profile data")
)

const maxProviderBody = 1 << 20

// GitHubProfile /user 的响应。指针字段为 nil 表示响应里没有该字段（或为 null）
type GitHubProfile struct {
	ID        string
	Login     string
	Name      *string
	AvatarURL *string
	Bio       *string
	Email     *string
	Raw       map[string]any
}

// GitHubEmail /user/emails 的一项。非主邮箱的 visibility 为 null
type GitHubEmail struct {
	Email      string `json:"email"`
	Primary    bool   `json:"primary"`
	Verified   bool   `json:"verified"`
	Visibility string `json:"visibility"`
}

// GitHubClient 封装授权码交换与用户信息接口，配置在启动时确定
type GitHubClient struct {
	oauth      *oauth2.Config
	cfg        config.GitHubConfig
	httpClient *http.Client
	timeout    time.Duration
}

func NewGitHubClient(cfg config.GitHubConfig, timeout time.Duration) *GitHubClient {
	return &GitHubClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		cfg:        cfg,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// AuthCodeURL 构造跳转到 GitHub 的授权地址
func (c *GitHubClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange 用授权码换取 access token
func (c *GitHubClient) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}
	return tok.AccessToken, nil
}

// FetchProfile 非 2xx 一律视为没有数据
func (c *GitHubClient) FetchProfile(ctx context.Context, token string) (*GitHubProfile, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, c.cfg.UserURL, token, &raw); err != nil {
		return nil, err
	}
	return parseProfile(raw)
}

func (c *GitHubClient) FetchEmails(ctx context.Context, token string) ([]GitHubEmail, error) {
	var emails []GitHubEmail
	if err := c.getJSON(ctx, c.cfg.EmailsURL, token, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (c *GitHubClient) getJSON(ctx context.Context, url, token string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProviderBody))
		return fmt.Errorf("%w: status %d", ErrNoProfile, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxProviderBody))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrNoProfile, err)
	}
	return nil
}

func parseProfile(raw map[string]any) (*GitHubProfile, error) {
	if raw == nil {
		return nil, ErrNoProfile
	}
	var id string
	switch v := raw["id"].(type) {
	case json.Number:
		id = v.String()
	case string:
		id = v
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrNoProfile)
	}

	p := &GitHubProfile{
		ID:        id,
		Name:      stringField(raw, "name"),
		AvatarURL: stringField(raw, "avatar_url"),
		Bio:       stringField(raw, "bio"),
		Email:     stringField(raw, "email"),
		Raw:       raw,
	}
	if login := stringField(raw, "login"); login != nil {
		p.Login = *login
	}
	return p, nil
}

func stringField(raw map[string]any, key string) *string {
	if s, ok := raw[key].(string); ok {
		return &s
	}
	return nil
}
