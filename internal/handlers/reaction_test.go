package handlers

import (
	"context"
	"net/http"
	"testing"

	"arcadepress/internal/logger"
	"arcadepress/internal/middleware"
	"arcadepress/internal/models"
	"arcadepress/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReactions(t *testing.T, signedIn bool) (*testApp, *models.Post) {
	t.Helper()
	var reader *models.User
	app := newTestApp(t, func() *models.User {
		if signedIn {
			return reader
		}
		return nil
	})

	author := createUser(t, app.conn, "1", "octocat")
	reader = createUser(t, app.conn, "2", "hubot")
	post, err := services.NewPostService(app.conn, logger.Discard()).Create(context.Background(), author,
		services.PostInput{Title: "Hello", Content: "x", IsPublished: true})
	require.NoError(t, err)

	h := NewReactionHandler(services.NewReactionService(app.conn))
	app.engine.POST("/blog/react/:type/:id", middleware.AuthRequiredJSON(), h.React)
	return app, post
}

func TestReact_LikeThenDislike(t *testing.T) {
	app, post := setupReactions(t, true)
	url := "/blog/react/post/" + itoa(post.ID)

	w := app.do(http.MethodPost, url, `{"reaction_type":"like"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"likes":1,"dislikes":0}`, w.Body.String())

	w = app.do(http.MethodPost, url, `{"reaction_type":"dislike"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"likes":0,"dislikes":1}`, w.Body.String())

	var n int64
	require.NoError(t, app.conn.Model(&models.Reaction{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestReact_InvalidReaction(t *testing.T) {
	app, post := setupReactions(t, true)
	url := "/blog/react/post/" + itoa(post.ID)

	for _, body := range []string{`{"reaction_type":"love"}`, `{}`, `not json`} {
		w := app.do(http.MethodPost, url, body, "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Invalid reaction"}`, w.Body.String(), body)
	}
}

func TestReact_Errors(t *testing.T) {
	app, post := setupReactions(t, true)

	w := app.do(http.MethodPost, "/blog/react/post/9999", `{"reaction_type":"like"}`, "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/blog/react/story/"+itoa(post.ID), `{"reaction_type":"like"}`, "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/blog/react/post/abc", `{"reaction_type":"like"}`, "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/blog/react/post/9999", `{"reaction_type":"love"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid reaction"}`, w.Body.String())
}

func TestReact_RequiresSignIn(t *testing.T) {
	app, post := setupReactions(t, false)

	w := app.do(http.MethodPost, "/blog/react/post/"+itoa(post.ID), `{"reaction_type":"like"}`, "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
