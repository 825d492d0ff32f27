package models

import (
	"strings"
	"time"
)

// Game 可在浏览器中游玩的游戏包：上传的 ZIP 或外部链接，二选一
type Game struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Slug        string    `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	ArchivePath string    `gorm:"size:255" json:"archive_path"` // relative to media root
	EntryPath   string    `gorm:"size:255" json:"entry_path"`   // relative to media root, set after extraction
	URL         string    `gorm:"size:200" json:"url"`
	IsApproved  bool      `gorm:"not null;index" json:"is_approved"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CreatedAt   time.Time `json:"created_at"`
}

func (g *Game) HasArchive() bool {
	return g.ArchivePath != ""
}

// Source returns the playable URL: the extracted entry point when an archive
// was uploaded, otherwise the external URL.
func (g *Game) Source(mediaURL string) (string, bool) {
	if g.HasArchive() {
		if g.EntryPath == "" {
			return "", false
		}
		return strings.TrimSuffix(mediaURL, "/") + "/" + g.EntryPath, true
	}
	if g.URL != "" {
		return g.URL, true
	}
	return "", false
}
