package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 本地账号，以 GitHub 用户 ID (UID) 作为稳定主键关联
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UID         string         `gorm:"column:uid;uniqueIndex;size:64;not null" json:"uid"` // GitHub user id
	Username    string         `gorm:"size:255;not null" json:"username"`                  // GitHub login
	Name        string         `gorm:"size:255" json:"name"`
	Email       string         `gorm:"size:255;index" json:"email"` // 仅采用公开的主邮箱
	AvatarURL   string         `gorm:"size:255" json:"avatar_url"`
	Bio         string         `gorm:"type:text" json:"bio"`
	AccessToken string         `gorm:"size:512" json:"-"` // sealed, see services.TokenVault
	RawData     map[string]any `gorm:"type:text;serializer:json" json:"-"`
	Role        string         `gorm:"size:20;not null" json:"role"` // user, admin
	LastLoginAt *time.Time     `json:"last_login_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName 优先显示昵称
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
