package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"arcadepress/internal/apperror"
	"arcadepress/internal/config"
	"arcadepress/internal/metrics"
	"arcadepress/internal/models"
	"arcadepress/internal/utils"

	"gorm.io/gorm"
)

// IdentityProvider GitHub OAuth 与用户信息接口
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, token string) (*GitHubProfile, error)
	FetchEmails(ctx context.Context, token string) ([]GitHubEmail, error)
}

// AccountService 把授权码转换为本地账号，并维护资料同步
type AccountService struct {
	db       *gorm.DB
	provider IdentityProvider
	vault    *TokenVault
	cfg      *config.Config
	profiles *utils.TTLCache[*GitHubProfile]
	emails   *utils.TTLCache[[]GitHubEmail]
	log      *slog.Logger
}

func NewAccountService(db *gorm.DB, provider IdentityProvider, vault *TokenVault, cfg *config.Config, log *slog.Logger) *AccountService {
	return &AccountService{
		db:       db,
		provider: provider,
		vault:    vault,
		cfg:      cfg,
		profiles: utils.NewTTLCache[*GitHubProfile](cfg.ProfileCacheTTL),
		emails:   utils.NewTTLCache[[]GitHubEmail](cfg.ProfileCacheTTL),
		log:      log,
	}
}

func (s *AccountService) AuthCodeURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// Authenticate 授权码 -> token -> 资料 -> 本地账号。任一步失败都不修改账号
func (s *AccountService) Authenticate(ctx context.Context, code string) (*models.User, error) {
	user, err := s.authenticate(ctx, code)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return user, nil
}

func (s *AccountService) authenticate(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("GitHub token exchange failed", slog.Any("error", err))
		return nil, err
	}

	profile, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		s.log.Warn("GitHub profile fetch failed", slog.Any("error", err))
		return nil, err
	}

	user, err := s.Upsert(ctx, profile, token)
	if err != nil {
		return nil, err
	}
	s.profiles.Set(profileCacheKey(user.ID), profile)

	// 新 token 登录时总是重新拉取邮箱
	if err := s.adoptEmail(ctx, user, token, true); err != nil {
		s.log.Warn("Failed to adopt GitHub email", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
	}

	s.log.Info("User signed in", slog.Uint64("user_id", uint64(user.ID)), slog.String("login", user.Username))
	return user, nil
}

// Upsert 按 GitHub ID 查找账号：不存在则创建，存在则只覆盖响应中出现的字段，并保存新 token
func (s *AccountService) Upsert(ctx context.Context, profile *GitHubProfile, token string) (*models.User, error) {
	if profile == nil || profile.ID == "" {
		return nil, ErrNoProfile
	}
	sealed, err := s.vault.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}

	now := time.Now()
	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("uid = ?", profile.ID).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{UID: profile.ID, Username: profile.Login, Role: models.RoleUser}
			if profile.Email != nil {
				user.Email = *profile.Email
			}
		case err != nil:
			return err
		}

		applyProfile(&user, profile)
		user.AccessToken = sealed
		user.LastLoginAt = &now
		if s.cfg.IsAdminLogin(user.Username) {
			user.Role = models.RoleAdmin
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("user", profile.ID)
		}
		return nil, err
	}
	return &user, nil
}

// SyncProfile 刷新资料与公开主邮箱。force 跳过缓存并覆盖缓存。
// 拉取失败时账号保持原样，返回 false
func (s *AccountService) SyncProfile(ctx context.Context, user *models.User, force bool) (bool, error) {
	token, err := s.vault.Open(user.AccessToken)
	if err != nil || token == "" {
		s.log.Warn("No usable access token for profile sync", slog.Uint64("user_id", uint64(user.ID)))
		return false, nil
	}

	profile := s.cachedProfile(ctx, user.ID, token, force)
	if profile == nil {
		metrics.ProfileSyncsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return false, nil
	}

	// 只写入变化的列，缓存命中且资料未变时不写库
	updated := *user
	if changed := applyProfile(&updated, profile); len(changed) > 0 {
		if err := s.db.WithContext(ctx).Model(&updated).Select(changed).Updates(&updated).Error; err != nil {
			return false, err
		}
	}

	if err := s.adoptEmail(ctx, &updated, token, force); err != nil {
		s.log.Warn("Failed to adopt GitHub email", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
	}

	*user = updated
	metrics.ProfileSyncsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return true, nil
}

func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user", fmt.Sprint(id))
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SelectPublicPrimaryEmail 只采用 primary 且公开的邮箱，从不采用私有邮箱
func SelectPublicPrimaryEmail(emails []GitHubEmail) (string, bool) {
	for _, e := range emails {
		if e.Primary && e.Visibility == "public" && e.Email != "" {
			return e.Email, true
		}
	}
	return "", false
}

func (s *AccountService) adoptEmail(ctx context.Context, user *models.User, token string, force bool) error {
	emails := s.cachedEmails(ctx, user.ID, token, force)
	addr, ok := SelectPublicPrimaryEmail(emails)
	if !ok || addr == user.Email {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("email", addr).Error; err != nil {
		return err
	}
	user.Email = addr
	return nil
}

func (s *AccountService) cachedProfile(ctx context.Context, userID uint, token string, force bool) *GitHubProfile {
	key := profileCacheKey(userID)
	if !force {
		if p, ok := s.profiles.Get(key); ok {
			return p
		}
	}
	p, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		s.log.Warn("GitHub profile fetch failed", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
		return nil
	}
	s.profiles.Set(key, p)
	return p
}

func (s *AccountService) cachedEmails(ctx context.Context, userID uint, token string, force bool) []GitHubEmail {
	key := fmt.Sprintf("github_emails:%d", userID)
	if !force {
		if e, ok := s.emails.Get(key); ok {
			return e
		}
	}
	e, err := s.provider.FetchEmails(ctx, token)
	if err != nil {
		s.log.Warn("GitHub emails fetch failed", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
		return nil
	}
	s.emails.Set(key, e)
	return e
}

func profileCacheKey(userID uint) string {
	return fmt.Sprintf("github_data:%d", userID)
}

// applyProfile 只覆盖响应中出现的字段，返回值变化的列名
func applyProfile(u *models.User, p *GitHubProfile) []string {
	var changed []string
	set := func(column string, dst *string, v string) {
		if *dst != v {
			*dst = v
			changed = append(changed, column)
		}
	}

	if p.ID != "" {
		set("uid", &u.UID, p.ID)
	}
	if p.Login != "" {
		set("username", &u.Username, p.Login)
	}
	if p.Name != nil {
		set("name", &u.Name, *p.Name)
	}
	if p.AvatarURL != nil {
		set("avatar_url", &u.AvatarURL, *p.AvatarURL)
	}
	if p.Bio != nil {
		set("bio", &u.Bio, *p.Bio)
	}
	if p.Raw != nil && !reflect.DeepEqual(u.RawData, p.Raw) {
		u.RawData = p.Raw
		changed = append(changed, "raw_data")
	}
	return changed
}
