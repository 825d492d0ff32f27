package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// GitHubConfig 身份提供方配置，启动时构造一次，之后只读
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserURL      string
	EmailsURL    string
	Scopes       []string
}

// Config 应用配置
type Config struct {
	Port            int
	SiteURL         string
	DatabaseURL     string
	SessionSecret   string
	MediaRoot       string
	MediaURL        string
	TemplatesDir    string
	MaxArchiveBytes int64
	ProfileCacheTTL time.Duration
	ProviderTimeout time.Duration
	AdminLogins     []string
	LogLevel        string
	LogFormat       string
	GitHub          GitHubConfig
}

// rawEnv holds raw env values before normalisation.
type rawEnv struct {
	Port               int           `env:"PORT"               envDefault:"8080"`
	SiteURL            string        `env:"SITE_URL"           envDefault:"http://localhost:8080"`
	DatabaseURL        string        `env:"DATABASE_URL"       envDefault:"host=localhost user=postgres password=postgres dbname=arcadepress port=5432 sslmode=disable"`
	SessionSecret      string        `env:"SESSION_SECRET"     envDefault:"secret_key_change_me"`
	MediaRoot          string        `env:"MEDIA_ROOT"         envDefault:"./media"`
	MediaURL           string        `env:"MEDIA_URL"          envDefault:"/media"`
	TemplatesDir       string        `env:"TEMPLATES_DIR"      envDefault:"./web/templates"`
	MaxArchiveBytes    int64         `env:"MAX_ARCHIVE_BYTES"  envDefault:"5242880"`
	ProfileCacheTTL    time.Duration `env:"PROFILE_CACHE_TTL"  envDefault:"15m"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT"   envDefault:"10s"`
	AdminLogins        []string      `env:"ADMIN_LOGINS"       envSeparator:","`
	LogLevel           string        `env:"LOG_LEVEL"          envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT"         envDefault:"text"`
	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	GitHubAuthURL      string        `env:"GITHUB_AUTH_URL"    envDefault:"https://github.com/login/oauth/authorize"`
	GitHubTokenURL     string        `env:"GITHUB_TOKEN_URL"   envDefault:"https://github.com/login/oauth/access_token"`
	GitHubUserURL      string        `env:"GITHUB_USER_URL"    envDefault:"https://api.github.com/user"`
	GitHubEmailsURL    string        `env:"GITHUB_EMAILS_URL"  envDefault:"https://api.github.com/user/emails"`
	GitHubScopes       []string      `env:"GITHUB_SCOPES"      envDefault:"user:email,read:user" envSeparator:","`
}

// Load 读取 .env（可选）与环境变量
func Load() (*Config, error) {
	// .env 不存在时直接使用系统环境变量
	_ = godotenv.Load()

	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if raw.Port <= 0 || raw.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT value: %d", raw.Port)
	}
	if raw.MaxArchiveBytes <= 0 {
		return nil, fmt.Errorf("MAX_ARCHIVE_BYTES must be positive")
	}

	siteURL := strings.TrimSuffix(raw.SiteURL, "/")

	return &Config{
		Port:            raw.Port,
		SiteURL:         siteURL,
		DatabaseURL:     raw.DatabaseURL,
		SessionSecret:   raw.SessionSecret,
		MediaRoot:       raw.MediaRoot,
		MediaURL:        "/" + strings.Trim(raw.MediaURL, "/"),
		TemplatesDir:    raw.TemplatesDir,
		MaxArchiveBytes: raw.MaxArchiveBytes,
		ProfileCacheTTL: raw.ProfileCacheTTL,
		ProviderTimeout: raw.ProviderTimeout,
		AdminLogins:     trimCSV(raw.AdminLogins),
		LogLevel:        raw.LogLevel,
		LogFormat:       raw.LogFormat,
		GitHub: GitHubConfig{
			ClientID:     raw.GitHubClientID,
			ClientSecret: raw.GitHubClientSecret,
			RedirectURL:  siteURL + "/account/github/login/callback",
			AuthURL:      raw.GitHubAuthURL,
			TokenURL:     raw.GitHubTokenURL,
			UserURL:      raw.GitHubUserURL,
			EmailsURL:    raw.GitHubEmailsURL,
			Scopes:       trimCSV(raw.GitHubScopes),
		},
	}, nil
}

// IsAdminLogin reports whether login is listed in ADMIN_LOGINS.
func (c *Config) IsAdminLogin(login string) bool {
	for _, l := range c.AdminLogins {
		if strings.EqualFold(l, login) {
			return true
		}
	}
	return false
}

func trimCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
