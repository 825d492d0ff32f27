package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"arcadepress/internal/apperror"
	"arcadepress/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentInput 评论表单，ParentID 为空表示顶层评论
type CommentInput struct {
	Content  string `form:"content" validate:"required,max=5000"`
	ParentID *uint  `form:"parent_id"`
}

// CommentNode 评论树节点
type CommentNode struct {
	Comment  models.Comment
	Children []*CommentNode
	Depth    int
}

type CommentService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewCommentService(db *gorm.DB, log *slog.Logger) *CommentService {
	return &CommentService{db: db, log: log}
}

// Add 发表评论。回复的父评论必须已存在且属于同一篇文章，因此评论树不会成环
func (s *CommentService) Add(ctx context.Context, author *models.User, post *models.Post, in CommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.ParentID != nil && *in.ParentID == 0 {
		in.ParentID = nil
	}
	if err := validateStruct(in).Err(); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  author.ID,
		Content: in.Content,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ParentID != nil {
			var parent models.Comment
			err := tx.Where("id = ? AND post_id = ?", *in.ParentID, post.ID).First(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ValidationFailed("parent_id", "The comment you replied to does not exist on this post.")
			}
			if err != nil {
				return err
			}
			comment.ParentID = &parent.ID
		}
		return tx.Omit(clause.Associations).Create(comment).Error
	})
	if err != nil {
		return nil, err
	}

	comment.User = *author
	return comment, nil
}

// Children 直接回复，按时间正序
func (s *CommentService) Children(ctx context.Context, commentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := s.db.WithContext(ctx).Preload("User").
		Where("parent_id = ?", commentID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	return replies, err
}

// Descendants 深度优先返回所有后代评论，逐层按需查询
func (s *CommentService) Descendants(ctx context.Context, commentID uint) ([]models.Comment, error) {
	replies, err := s.Children(ctx, commentID)
	if err != nil {
		return nil, err
	}
	var tree []models.Comment
	for _, reply := range replies {
		tree = append(tree, reply)
		sub, err := s.Descendants(ctx, reply.ID)
		if err != nil {
			return nil, err
		}
		tree = append(tree, sub...)
	}
	return tree, nil
}

// Threads 返回文章的评论树：顶层评论按时间倒序，回复按时间正序
func (s *CommentService) Threads(ctx context.Context, postID uint) ([]*CommentNode, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	children := make(map[uint][]*CommentNode)
	var roots []*CommentNode
	for _, c := range comments {
		node := &CommentNode{Comment: c}
		if c.ParentID == nil {
			roots = append(roots, node)
		} else {
			children[*c.ParentID] = append(children[*c.ParentID], node)
		}
	}

	var attach func(n *CommentNode, depth int)
	attach = func(n *CommentNode, depth int) {
		n.Depth = depth
		n.Children = children[n.Comment.ID]
		for _, child := range n.Children {
			attach(child, depth+1)
		}
	}
	for _, root := range roots {
		attach(root, 0)
	}

	// 顶层最新在前
	for i, j := 0, len(roots)-1; i < j; i, j = i+1, j-1 {
		roots[i], roots[j] = roots[j], roots[i]
	}
	return roots, nil
}

func (s *CommentService) Get(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("comment", "")
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
