package handlers

import (
	"log/slog"
	"net/http"

	"arcadepress/internal/models"
	"arcadepress/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts     *services.PostService
	comments  *services.CommentService
	reactions *services.ReactionService
	games     *services.GameService
	log       *slog.Logger
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService, reactions *services.ReactionService, games *services.GameService, log *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, reactions: reactions, games: games, log: log}
}

// List 我的文章（含未发布）
func (h *PostHandler) List(c *gin.Context) {
	page, err := h.posts.ListByAuthor(c.Request.Context(), currentUser(c).ID, pageParam(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "blog/post_list.html", gin.H{
		"Title": "My posts",
		"Posts": page,
	})
}

// ListPublic 已发布文章，最新在前
func (h *PostHandler) ListPublic(c *gin.Context) {
	page, err := h.posts.ListPublic(c.Request.Context(), pageParam(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "blog/public_post_list.html", gin.H{
		"Title": "Posts",
		"Posts": page,
	})
}

func (h *PostHandler) Detail(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"), currentUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	h.renderDetail(c, http.StatusOK, post, gin.H{})
}

// CreateComment 在详情页发表评论或回复
func (h *PostHandler) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	post, err := h.posts.GetBySlug(ctx, c.Param("slug"), user)
	if err != nil {
		handleError(c, err)
		return
	}

	var in services.CommentInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderDetail(c, http.StatusBadRequest, post, gin.H{"CommentErrors": map[string][]string{"__all__": {"Invalid comment."}}})
		return
	}

	if _, err := h.comments.Add(ctx, user, post, in); err != nil {
		if verrs, ok := formErrors(err); ok {
			h.renderDetail(c, http.StatusBadRequest, post, gin.H{"CommentErrors": verrs, "CommentForm": in})
			return
		}
		handleError(c, err)
		return
	}

	Flash(c, "Comment added successfully.")
	c.Redirect(http.StatusFound, "/blog/posts/"+post.Slug)
}

func (h *PostHandler) renderDetail(c *gin.Context, code int, post *models.Post, data gin.H) {
	ctx := c.Request.Context()

	threads, err := h.comments.Threads(ctx, post.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	counts, err := h.reactions.PostCounts(ctx, post.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	commentCounts, err := h.reactions.CommentCounts(ctx, collectCommentIDs(threads, nil))
	if err != nil {
		handleError(c, err)
		return
	}

	var userReaction models.ReactionType
	if user := currentUser(c); user != nil {
		if userReaction, err = h.reactions.UserPostReaction(ctx, user.ID, post.ID); err != nil {
			handleError(c, err)
			return
		}
	}

	data["Title"] = post.Title
	data["Post"] = post
	data["Comments"] = threads
	data["Reactions"] = counts
	data["CommentReactions"] = commentCounts
	data["UserLiked"] = userReaction == models.ReactionLike
	data["UserDisliked"] = userReaction == models.ReactionDislike
	Render(c, code, "blog/post_detail.html", data)
}

func collectCommentIDs(nodes []*services.CommentNode, ids []uint) []uint {
	for _, n := range nodes {
		ids = append(ids, n.Comment.ID)
		ids = collectCommentIDs(n.Children, ids)
	}
	return ids
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "blog/create_post.html", gin.H{
		"Form": services.PostInput{IsPublished: true, GameSlug: c.Query("game")},
	})
}

func (h *PostHandler) Create(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderForm(c, http.StatusBadRequest, "blog/create_post.html", gin.H{"Form": in, "Errors": map[string][]string{"__all__": {"Invalid form data."}}})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		if verrs, ok := formErrors(err); ok {
			h.renderForm(c, http.StatusBadRequest, "blog/create_post.html", gin.H{"Form": in, "Errors": verrs})
			return
		}
		handleError(c, err)
		return
	}

	Flash(c, "Post created successfully.")
	c.Redirect(http.StatusFound, "/blog/posts/"+post.Slug)
}

func (h *PostHandler) ShowEdit(c *gin.Context) {
	post, err := h.posts.GetOwned(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}

	in := services.PostInput{
		Title:       post.Title,
		Content:     post.Content,
		Tags:        post.TagNames(),
		IsPublished: post.IsPublished,
	}
	if post.Game != nil {
		in.GameSlug = post.Game.Slug
	}
	h.renderForm(c, http.StatusOK, "blog/edit_post.html", gin.H{"Post": post, "Form": in})
}

func (h *PostHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	slug := c.Param("slug")

	var in services.PostInput
	bindErr := c.ShouldBind(&in)

	post, err := h.posts.GetOwned(ctx, user, slug)
	if err != nil {
		handleError(c, err)
		return
	}
	if bindErr != nil {
		h.renderForm(c, http.StatusBadRequest, "blog/edit_post.html", gin.H{"Post": post, "Form": in, "Errors": map[string][]string{"__all__": {"Invalid form data."}}})
		return
	}

	if _, err := h.posts.Update(ctx, user, slug, in); err != nil {
		if verrs, ok := formErrors(err); ok {
			h.renderForm(c, http.StatusBadRequest, "blog/edit_post.html", gin.H{"Post": post, "Form": in, "Errors": verrs})
			return
		}
		handleError(c, err)
		return
	}

	Flash(c, "Post updated successfully.")
	c.Redirect(http.StatusFound, "/blog/posts/"+slug)
}

// ShowDelete 删除确认页
func (h *PostHandler) ShowDelete(c *gin.Context) {
	post, err := h.posts.GetOwned(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "blog/delete_post.html", gin.H{"Title": "Delete post", "Post": post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), currentUser(c), c.Param("slug")); err != nil {
		handleError(c, err)
		return
	}
	Flash(c, "Post deleted successfully.")
	c.Redirect(http.StatusFound, "/blog/posts")
}

// renderForm 表单页附带可关联的游戏列表
func (h *PostHandler) renderForm(c *gin.Context, code int, name string, data gin.H) {
	games, err := h.games.ListByOwner(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	data["Games"] = games
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Write a post"
	}
	Render(c, code, name, data)
}

