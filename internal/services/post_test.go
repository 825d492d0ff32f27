package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"arcadepress/internal/apperror"
	"arcadepress/internal/db/dbtest"
	"arcadepress/internal/logger"
	"arcadepress/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPostService(t *testing.T) (*PostService, *gorm.DB, *models.User) {
	t.Helper()
	conn := dbtest.New(t)
	return NewPostService(conn, logger.Discard()), conn, createUser(t, conn, "1001", "octocat")
}

func TestPostCreate(t *testing.T) {
	svc, conn, author := newPostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, author, PostInput{
		Title:       "  Hello, Wörld!  ",
		Content:     "# hi",
		Tags:        "Devlog, devlog, Retro Games",
		IsPublished: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, "Hello, Wörld!", post.Title)

	loaded, err := svc.GetBySlug(ctx, "hello-world", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Devlog", "Retro Games"}, strings.Split(loaded.TagNames(), ", "))
	assert.Equal(t, "octocat", loaded.User.Username)

	// 已有的标签不重复创建
	var devlogs int64
	require.NoError(t, conn.Model(&models.Tag{}).Where("LOWER(name) = ?", "devlog").Count(&devlogs).Error)
	assert.Equal(t, int64(1), devlogs)

	second, err := svc.Create(ctx, author, PostInput{Title: "Hello World", Content: "again"})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", second.Slug)
}

func TestPostCreate_ReservedAndEmptySlug(t *testing.T) {
	svc, _, author := newPostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, author, PostInput{Title: "Create", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "create-2", post.Slug)

	post, err = svc.Create(ctx, author, PostInput{Title: "!!!", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "post", post.Slug)
}

func TestPostCreate_Validation(t *testing.T) {
	svc, conn, author := newPostService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, author, PostInput{Content: "body"})
	fields := validationFields(t, err)
	assert.Equal(t, []string{"This field is required."}, fields["title"])

	_, err = svc.Create(ctx, author, PostInput{Title: "x", Content: "y", GameSlug: "missing"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	other := createUser(t, conn, "2002", "hubot")
	hidden := &models.Game{Title: "Hidden", Slug: "hidden", URL: "https://example.com", UserID: other.ID}
	require.NoError(t, conn.Create(hidden).Error)

	_, err = svc.Create(ctx, author, PostInput{Title: "x", Content: "y", GameSlug: "hidden"})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "game", appErr.Field)

	var n int64
	require.NoError(t, conn.Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPostCreate_LinksGame(t *testing.T) {
	svc, conn, author := newPostService(t)
	ctx := context.Background()

	own := &models.Game{Title: "Mine", Slug: "mine", URL: "https://example.com", UserID: author.ID}
	require.NoError(t, conn.Create(own).Error)

	post, err := svc.Create(ctx, author, PostInput{Title: "Devlog 1", Content: "x", GameSlug: "mine", IsPublished: true})
	require.NoError(t, err)
	require.NotNil(t, post.GameID)
	assert.Equal(t, own.ID, *post.GameID)
}

func TestParseTagNames(t *testing.T) {
	names, err := ParseTagNames(" a ,b,, A,  c   d ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c d"}, names)

	_, err = ParseTagNames("1,2,3,4,5,6,7,8,9,10,11")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestPostVisibility(t *testing.T) {
	svc, conn, author := newPostService(t)
	ctx := context.Background()
	stranger := createUser(t, conn, "2002", "hubot")

	_, err := svc.Create(ctx, author, PostInput{Title: "Draft", Content: "wip"})
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, "draft", nil)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	_, err = svc.GetBySlug(ctx, "draft", stranger)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	post, err := svc.GetBySlug(ctx, "draft", author)
	require.NoError(t, err)
	assert.False(t, post.IsPublished)

	public, err := svc.ListPublic(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, public.Total)

	mine, err := svc.ListByAuthor(ctx, author.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
}

func TestPostUpdate(t *testing.T) {
	svc, conn, author := newPostService(t)
	ctx := context.Background()
	stranger := createUser(t, conn, "2002", "hubot")

	_, err := svc.Create(ctx, author, PostInput{Title: "First", Content: "v1", Tags: "a, b"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, "first", PostInput{Title: "Hijack", Content: "x"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	updated, err := svc.Update(ctx, author, "first", PostInput{Title: "Renamed", Content: "v2", Tags: "b", IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, "first", updated.Slug)

	loaded, err := svc.GetBySlug(ctx, "first", nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Title)
	assert.Equal(t, "v2", loaded.Content)
	assert.Equal(t, "b", loaded.TagNames())
}

func TestPostDelete_RemovesThread(t *testing.T) {
	conn := dbtest.New(t)
	svc := NewPostService(conn, logger.Discard())
	comments := NewCommentService(conn, logger.Discard())
	reactions := NewReactionService(conn)
	ctx := context.Background()

	author := createUser(t, conn, "1001", "octocat")
	reader := createUser(t, conn, "2002", "hubot")

	post, err := svc.Create(ctx, author, PostInput{Title: "Bye", Content: "x", Tags: "devlog", IsPublished: true})
	require.NoError(t, err)
	root, err := comments.Add(ctx, reader, post, CommentInput{Content: "first"})
	require.NoError(t, err)
	_, err = comments.Add(ctx, author, post, CommentInput{Content: "reply", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = reactions.ReactToPost(ctx, reader, post.ID, "like")
	require.NoError(t, err)
	_, err = reactions.ReactToComment(ctx, author, root.ID, "like")
	require.NoError(t, err)

	assert.True(t, errors.Is(svc.Delete(ctx, reader, "bye"), apperror.ErrNotFound))
	require.NoError(t, svc.Delete(ctx, author, "bye"))

	for _, model := range []any{&models.Post{}, &models.Comment{}, &models.Reaction{}} {
		var n int64
		require.NoError(t, conn.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}

	// 标签本身保留
	var tags int64
	require.NoError(t, conn.Model(&models.Tag{}).Where("name = ?", "devlog").Count(&tags).Error)
	assert.Equal(t, int64(1), tags)
}

func TestPostLatest(t *testing.T) {
	svc, _, author := newPostService(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, author, PostInput{Title: title, Content: "x", IsPublished: true})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, author, PostInput{Title: "draft", Content: "x"})
	require.NoError(t, err)

	latest, err := svc.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	for _, p := range latest {
		assert.True(t, p.IsPublished)
	}
}
