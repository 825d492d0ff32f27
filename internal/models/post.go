package models

import (
	"time"
)

type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Content     string    `gorm:"type:text;not null" json:"content"` // markdown
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	GameID      *uint     `gorm:"index" json:"game_id"`
	Game        *Game     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"game"`
	Tags        []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int64 `gorm:"-" json:"comment_count"`
}

// TagNames 以逗号拼接，用于编辑表单回填
func (p *Post) TagNames() string {
	out := ""
	for i, t := range p.Tags {
		if i > 0 {
			out += ", "
		}
		out += t.Name
	}
	return out
}
