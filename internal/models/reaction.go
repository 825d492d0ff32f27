package models

import (
	"time"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Reaction 点赞/点踩，作用于文章或评论之一。每个用户对同一目标只保留一条，
// 由 (user_id, post_id) 和 (user_id, comment_id) 两个唯一索引保证
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reaction_user_post;uniqueIndex:idx_reaction_user_comment" json:"user_id"`
	User      User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID    *uint        `gorm:"index;uniqueIndex:idx_reaction_user_post" json:"post_id"`
	Post      *Post        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CommentID *uint        `gorm:"index;uniqueIndex:idx_reaction_user_comment" json:"comment_id"`
	Comment   *Comment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Type      ReactionType `gorm:"column:reaction_type;size:10;not null" json:"reaction_type"`
	CreatedAt time.Time    `json:"created_at"`
}
