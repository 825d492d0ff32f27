package services

import (
	"context"
	"errors"
	"fmt"

	"arcadepress/internal/apperror"
	"arcadepress/internal/metrics"
	"arcadepress/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidReaction reaction_type 不是 like/dislike
var ErrInvalidReaction = apperror.ValidationFailed("reaction_type", "Invalid reaction")

type ReactionCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

const (
	targetPost    = "post_id"
	targetComment = "comment_id"
)

type ReactionService struct {
	db *gorm.DB
}

func NewReactionService(db *gorm.DB) *ReactionService {
	return &ReactionService{db: db}
}

func ParseReactionType(s string) (models.ReactionType, error) {
	t := models.ReactionType(s)
	if !t.Valid() {
		return "", ErrInvalidReaction
	}
	return t, nil
}

// ReactToPost 同一用户对同一文章只保留一条，再次表态替换旧的
func (s *ReactionService) ReactToPost(ctx context.Context, user *models.User, postID uint, reaction string) (ReactionCounts, error) {
	t, err := ParseReactionType(reaction)
	if err != nil {
		return ReactionCounts{}, err
	}

	var post models.Post
	err = s.db.WithContext(ctx).Select("id", "user_id", "is_published").First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !post.IsPublished && post.UserID != user.ID) {
		return ReactionCounts{}, apperror.NotFound("post", fmt.Sprint(postID))
	}
	if err != nil {
		return ReactionCounts{}, err
	}
	return s.react(ctx, user, targetPost, postID, t)
}

func (s *ReactionService) ReactToComment(ctx context.Context, user *models.User, commentID uint, reaction string) (ReactionCounts, error) {
	t, err := ParseReactionType(reaction)
	if err != nil {
		return ReactionCounts{}, err
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", commentID).Count(&n).Error; err != nil {
		return ReactionCounts{}, err
	}
	if n == 0 {
		return ReactionCounts{}, apperror.NotFound("comment", fmt.Sprint(commentID))
	}
	return s.react(ctx, user, targetComment, commentID, t)
}

// react column 只会是 targetPost / targetComment。
// 并发请求同时插入时唯一索引会拒绝后到的一条，重试一次即可替换掉先到的
func (s *ReactionService) react(ctx context.Context, user *models.User, column string, id uint, t models.ReactionType) (ReactionCounts, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.replace(ctx, user, column, id, t)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return ReactionCounts{}, err
	}

	label := "post"
	if column == targetComment {
		label = "comment"
	}
	metrics.ReactionsTotal.WithLabelValues(label, string(t)).Inc()

	return s.counts(ctx, column, id)
}

func (s *ReactionService) replace(ctx context.Context, user *models.User, column string, id uint, t models.ReactionType) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND "+column+" = ?", user.ID, id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		r := models.Reaction{UserID: user.ID, Type: t}
		if column == targetPost {
			r.PostID = &id
		} else {
			r.CommentID = &id
		}
		return tx.Omit(clause.Associations).Create(&r).Error
	})
}

func (s *ReactionService) PostCounts(ctx context.Context, postID uint) (ReactionCounts, error) {
	return s.counts(ctx, targetPost, postID)
}

// CommentCounts 批量统计评论的点赞/点踩
func (s *ReactionService) CommentCounts(ctx context.Context, commentIDs []uint) (map[uint]ReactionCounts, error) {
	out := make(map[uint]ReactionCounts, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}

	type row struct {
		CommentID    uint
		ReactionType models.ReactionType
		Count        int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("comment_id, reaction_type, COUNT(*) as count").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id, reaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		c := out[r.CommentID]
		if r.ReactionType == models.ReactionLike {
			c.Likes = r.Count
		} else {
			c.Dislikes = r.Count
		}
		out[r.CommentID] = c
	}
	return out, nil
}

// UserPostReaction 当前用户对文章的表态，没有时返回空串
func (s *ReactionService) UserPostReaction(ctx context.Context, userID, postID uint) (models.ReactionType, error) {
	var r models.Reaction
	err := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return r.Type, err
}

func (s *ReactionService) counts(ctx context.Context, column string, id uint) (ReactionCounts, error) {
	type row struct {
		ReactionType models.ReactionType
		Count        int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("reaction_type, COUNT(*) as count").
		Where(column+" = ?", id).
		Group("reaction_type").
		Scan(&rows).Error
	if err != nil {
		return ReactionCounts{}, err
	}

	var c ReactionCounts
	for _, r := range rows {
		switch r.ReactionType {
		case models.ReactionLike:
			c.Likes = r.Count
		case models.ReactionDislike:
			c.Dislikes = r.Count
		}
	}
	return c, nil
}
