package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"arcadepress/internal/apperror"
	"arcadepress/internal/models"
	"arcadepress/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTagsPerPost = 10
	maxTagLen      = 50
)

// PostInput 发布/编辑表单
type PostInput struct {
	Title       string `form:"title" validate:"required,max=255"`
	Content     string `form:"content" validate:"required"`
	Tags        string `form:"tags" validate:"max=500"`
	GameSlug    string `form:"game" validate:"max=255"`
	IsPublished bool   `form:"is_published"`
}

type PostService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewPostService(db *gorm.DB, log *slog.Logger) *PostService {
	return &PostService{db: db, log: log}
}

func (s *PostService) Create(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if err := validateStruct(in).Err(); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		UserID:      author.ID,
		IsPublished: in.IsPublished,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gameID, err := s.resolveGame(tx, author, in.GameSlug)
		if err != nil {
			return err
		}
		post.GameID = gameID

		tags, err := resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}

		slug, err := utils.UniqueSlug(utils.Slugify(post.Title), "post", slugTaken(tx, &models.Post{}))
		if err != nil {
			return err
		}
		post.Slug = slug

		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("post", slug)
			}
			return err
		}
		post.Tags = tags
		if len(tags) == 0 {
			return nil
		}
		return tx.Model(post).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Post created", slog.String("slug", post.Slug), slog.Uint64("user_id", uint64(author.ID)))
	return post, nil
}

// Update 仅作者可编辑，slug 保持不变
func (s *PostService) Update(ctx context.Context, author *models.User, slug string, in PostInput) (*models.Post, error) {
	post, err := s.GetOwned(ctx, author, slug)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(in).Err(); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gameID, err := s.resolveGame(tx, author, in.GameSlug)
		if err != nil {
			return err
		}
		tags, err := resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}

		post.Title = strings.TrimSpace(in.Title)
		post.Content = in.Content
		post.IsPublished = in.IsPublished
		post.GameID = gameID
		post.Game = nil

		if err := tx.Omit(clause.Associations).Save(post).Error; err != nil {
			return err
		}
		post.Tags = tags
		return tx.Model(post).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Delete 删除文章及其评论、点赞
func (s *PostService) Delete(ctx context.Context, author *models.User, slug string) error {
	post, err := s.GetOwned(ctx, author, slug)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		// 先断开回复关系，再整体删除
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).Update("parent_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
}

// GetBySlug 未发布的文章只有作者可见
func (s *PostService) GetBySlug(ctx context.Context, slug string, viewer *models.User) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("User").Preload("Game").Preload("Tags").
		Where("slug = ?", slug).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("post", slug)
	}
	if err != nil {
		return nil, err
	}
	if !post.IsPublished && (viewer == nil || viewer.ID != post.UserID) {
		return nil, apperror.NotFound("post", slug)
	}
	return &post, nil
}

func (s *PostService) GetOwned(ctx context.Context, author *models.User, slug string) (*models.Post, error) {
	post, err := s.GetBySlug(ctx, slug, author)
	if err != nil {
		return nil, err
	}
	if author == nil || post.UserID != author.ID {
		return nil, apperror.NotFound("post", slug)
	}
	return post, nil
}

// ListByAuthor 作者自己的文章，包含未发布
func (s *PostService) ListByAuthor(ctx context.Context, userID uint, page int) (utils.Page[models.Post], error) {
	q := s.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Order("created_at DESC")
	result, err := utils.Paginate[models.Post](q, page, utils.DefaultPerPage, "User", "Tags")
	if err != nil {
		return result, err
	}
	s.fillCommentCounts(ctx, result.Items)
	return result, nil
}

// ListPublic 已发布文章，按时间倒序
func (s *PostService) ListPublic(ctx context.Context, page int) (utils.Page[models.Post], error) {
	q := s.db.WithContext(ctx).Model(&models.Post{}).Where("is_published = ?", true).Order("created_at DESC")
	result, err := utils.Paginate[models.Post](q, page, utils.DefaultPerPage, "User", "Tags")
	if err != nil {
		return result, err
	}
	s.fillCommentCounts(ctx, result.Items)
	return result, nil
}

func (s *PostService) Latest(ctx context.Context, n int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Preload("User").
		Where("is_published = ?", true).
		Order("created_at DESC").Limit(n).Find(&posts).Error
	if err != nil {
		return nil, err
	}
	s.fillCommentCounts(ctx, posts)
	return posts, nil
}

// fillCommentCounts 批量填充帖子的评论数量
func (s *PostService) fillCommentCounts(ctx context.Context, posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int64
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		s.log.Warn("Failed to count comments", slog.Any("error", err))
		return
	}

	countMap := make(map[uint]int64, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
}

// resolveGame 文章可关联一个已审核的游戏或作者自己的游戏
func (s *PostService) resolveGame(tx *gorm.DB, author *models.User, slug string) (*uint, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var game models.Game
	err := tx.Where("slug = ?", slug).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !game.IsApproved && game.UserID != author.ID) {
		return nil, apperror.ValidationFailed("game", "Select a valid game.")
	}
	if err != nil {
		return nil, err
	}
	return &game.ID, nil
}

// ParseTagNames 逗号分隔，去空白，忽略大小写去重
func ParseTagNames(raw string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.Join(strings.Fields(part), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		if len([]rune(name)) > maxTagLen {
			return nil, apperror.ValidationFailed("tags", "Each tag must be at most 50 characters.")
		}
		seen[key] = true
		names = append(names, name)
	}
	if len(names) > maxTagsPerPost {
		return nil, apperror.ValidationFailed("tags", "A post can have at most 10 tags.")
	}
	return names, nil
}

// resolveTags 按名称查找标签，不存在则创建
func resolveTags(tx *gorm.DB, raw string) ([]models.Tag, error) {
	names, err := ParseTagNames(raw)
	if err != nil {
		return nil, err
	}

	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag, err := findOrCreateTag(tx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func findOrCreateTag(tx *gorm.DB, name string) (models.Tag, error) {
	var tag models.Tag
	err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&tag).Error
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tag, err
	}

	slug, err := utils.UniqueSlug(utils.Slugify(name), "tag", slugTaken(tx, &models.Tag{}))
	if err != nil {
		return tag, err
	}
	tag = models.Tag{Name: name, Slug: slug}
	return tag, tx.Create(&tag).Error
}
