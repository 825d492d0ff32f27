package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"arcadepress/internal/apperror"
	"arcadepress/internal/services"

	"github.com/gin-gonic/gin"
)

// 表单其余字段预留的空间
const multipartOverhead = 1 << 20

type GameHandler struct {
	games    *services.GameService
	mediaURL string
	log      *slog.Logger
}

func NewGameHandler(games *services.GameService, mediaURL string, log *slog.Logger) *GameHandler {
	return &GameHandler{games: games, mediaURL: mediaURL, log: log}
}

func (h *GameHandler) List(c *gin.Context) {
	page, err := h.games.ListApproved(c.Request.Context(), pageParam(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "webgame/game_list.html", gin.H{
		"Title": "Games",
		"Games": page,
	})
}

// Play 已审核的游戏，或作者自己的未审核游戏
func (h *GameHandler) Play(c *gin.Context) {
	game, err := h.games.GetPlayable(c.Request.Context(), c.Param("slug"), currentUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	src, playable := game.Source(h.mediaURL)
	Render(c, http.StatusOK, "webgame/game_play.html", gin.H{
		"Title":    game.Title,
		"Game":     game,
		"Source":   src,
		"Playable": playable,
		"Embedded": playable && game.HasArchive(),
	})
}

func (h *GameHandler) ShowUpload(c *gin.Context) {
	Render(c, http.StatusOK, "webgame/game_upload.html", gin.H{
		"Title": "Upload a game",
		"Form":  services.GameSubmission{},
	})
}

func (h *GameHandler) Upload(c *gin.Context) {
	sub, cleanup, err := h.bindSubmission(c)
	defer cleanup()
	if err != nil {
		h.renderFormError(c, "webgame/game_upload.html", gin.H{"Title": "Upload a game", "Form": sub}, err)
		return
	}

	game, err := h.games.Create(c.Request.Context(), currentUser(c), sub)
	if err != nil {
		h.renderFormError(c, "webgame/game_upload.html", gin.H{"Title": "Upload a game", "Form": sub}, err)
		return
	}

	Flash(c, "Game uploaded successfully.")
	c.Redirect(http.StatusFound, "/games/play/"+game.Slug)
}

func (h *GameHandler) ShowEdit(c *gin.Context) {
	game, err := h.games.GetOwned(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "webgame/game_edit.html", gin.H{
		"Title": "Edit " + game.Title,
		"Game":  game,
		"Form":  services.GameSubmission{Title: game.Title, Description: game.Description, URL: game.URL},
	})
}

func (h *GameHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	game, err := h.games.GetOwned(ctx, user, c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}

	sub, cleanup, err := h.bindSubmission(c)
	defer cleanup()
	data := gin.H{"Title": "Edit " + game.Title, "Game": game, "Form": sub}
	if err != nil {
		h.renderFormError(c, "webgame/game_edit.html", data, err)
		return
	}

	if _, err := h.games.Update(ctx, user, game.Slug, sub); err != nil {
		h.renderFormError(c, "webgame/game_edit.html", data, err)
		return
	}

	Flash(c, "Game updated successfully.")
	c.Redirect(http.StatusFound, "/games/play/"+game.Slug)
}

// ShowDelete 删除确认页
func (h *GameHandler) ShowDelete(c *gin.Context) {
	game, err := h.games.GetOwned(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	Render(c, http.StatusOK, "webgame/game_delete.html", gin.H{"Title": "Delete " + game.Title, "Game": game})
}

func (h *GameHandler) Delete(c *gin.Context) {
	if err := h.games.Delete(c.Request.Context(), currentUser(c), c.Param("slug")); err != nil {
		handleError(c, err)
		return
	}
	Flash(c, "Game deleted successfully.")
	c.Redirect(http.StatusFound, "/games/list")
}

// bindSubmission 读取表单字段和可选的 zip_file。cleanup 总是可以调用
func (h *GameHandler) bindSubmission(c *gin.Context) (services.GameSubmission, func(), error) {
	cleanup := func() {}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.games.MaxArchiveBytes()+multipartOverhead)

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.GameSubmission{}, cleanup, apperror.ValidationFailed("zip_file", "The upload is too large.")
		}
		return services.GameSubmission{}, cleanup, apperror.ValidationFailed("__all__", "Invalid form data.")
	}

	sub := services.GameSubmission{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		URL:         c.PostForm("url"),
	}

	fh, err := c.FormFile("zip_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return sub, cleanup, nil
	}
	if err != nil {
		return sub, cleanup, apperror.ValidationFailed("zip_file", "Could not read the uploaded file.")
	}

	archive, closeFile, err := openArchive(fh)
	if err != nil {
		return sub, cleanup, err
	}
	sub.Archive = archive
	return sub, closeFile, nil
}

func openArchive(fh *multipart.FileHeader) (*services.ArchiveUpload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.ArchiveUpload{Filename: fh.Filename, Size: fh.Size, Reader: f}, func() { _ = f.Close() }, nil
}

// renderFormError 校验错误回显表单，其余错误走统一错误页
func (h *GameHandler) renderFormError(c *gin.Context, name string, data gin.H, err error) {
	verrs, ok := formErrors(err)
	if !ok {
		handleError(c, err)
		return
	}
	if form, ok := data["Form"].(services.GameSubmission); ok {
		form.Archive = nil
		data["Form"] = form
	}
	data["Errors"] = verrs
	Render(c, http.StatusBadRequest, name, data)
}
