package services

import (
	"context"
	"errors"
	"testing"

	"arcadepress/internal/apperror"
	"arcadepress/internal/db/dbtest"
	"arcadepress/internal/logger"
	"arcadepress/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commentFixture struct {
	posts    *PostService
	comments *CommentService
	author   *models.User
	reader   *models.User
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	conn := dbtest.New(t)
	return &commentFixture{
		posts:    NewPostService(conn, logger.Discard()),
		comments: NewCommentService(conn, logger.Discard()),
		author:   createUser(t, conn, "1001", "octocat"),
		reader:   createUser(t, conn, "2002", "hubot"),
	}
}

func (f *commentFixture) post(t *testing.T, title string) *models.Post {
	t.Helper()
	p, err := f.posts.Create(context.Background(), f.author, PostInput{Title: title, Content: "x", IsPublished: true})
	require.NoError(t, err)
	return p
}

func TestCommentAdd_Validation(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	post := f.post(t, "Hello")

	_, err := f.comments.Add(ctx, f.reader, post, CommentInput{Content: "   "})
	fields := validationFields(t, err)
	assert.Equal(t, []string{"This field is required."}, fields["content"])

	missing := uint(9999)
	_, err = f.comments.Add(ctx, f.reader, post, CommentInput{Content: "hi", ParentID: &missing})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "parent_id", appErr.Field)
}

func TestCommentAdd_ParentMustBelongToPost(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	first := f.post(t, "First")
	second := f.post(t, "Second")

	elsewhere, err := f.comments.Add(ctx, f.reader, first, CommentInput{Content: "on first"})
	require.NoError(t, err)

	_, err = f.comments.Add(ctx, f.reader, second, CommentInput{Content: "reply", ParentID: &elsewhere.ID})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	reply, err := f.comments.Add(ctx, f.author, first, CommentInput{Content: "reply", ParentID: &elsewhere.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, elsewhere.ID, *reply.ParentID)
	assert.Equal(t, "octocat", reply.User.Username)
}

func TestCommentTree(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	post := f.post(t, "Tree")

	add := func(content string, parent *models.Comment) *models.Comment {
		in := CommentInput{Content: content}
		if parent != nil {
			in.ParentID = &parent.ID
		}
		c, err := f.comments.Add(ctx, f.reader, post, in)
		require.NoError(t, err)
		return c
	}

	a := add("a", nil)
	a1 := add("a1", a)
	add("a1x", a1)
	add("a2", a)
	add("b", nil)

	children, err := f.comments.Children(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, contents(children))

	descendants, err := f.comments.Descendants(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a1x", "a2"}, contents(descendants))

	threads, err := f.comments.Threads(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "b", threads[0].Comment.Content)
	assert.Equal(t, "a", threads[1].Comment.Content)

	require.Len(t, threads[1].Children, 2)
	nested := threads[1].Children[0]
	assert.Equal(t, "a1", nested.Comment.Content)
	assert.Equal(t, 1, nested.Depth)
	require.Len(t, nested.Children, 1)
	assert.Equal(t, 2, nested.Children[0].Depth)
	assert.Equal(t, "hubot", nested.Children[0].Comment.User.Username)
}

func contents(comments []models.Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.Content
	}
	return out
}
