package handlers

import (
	"errors"
	"net/http"

	"arcadepress/internal/apperror"
	"arcadepress/internal/middleware"
	"arcadepress/internal/models"
	"arcadepress/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}

	// 一次性提示，读取后清空
	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		obj["Flashes"] = flashes
		_ = session.Save()
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError 渲染错误页
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Code": code, "Error": message})
}

// Flash 在下一次页面渲染时显示 message
func Flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	_ = session.Save()
}

// handleError 把服务层错误映射为状态码
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		RenderError(c, http.StatusNotFound, "Page not found.")
	case errors.Is(err, apperror.ErrForbidden):
		RenderError(c, http.StatusForbidden, "You do not have permission to do that.")
	case errors.Is(err, apperror.ErrConflict):
		RenderError(c, http.StatusConflict, "That item was just taken. Please try again.")
	case errors.Is(err, apperror.ErrValidation):
		RenderError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		RenderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

// formErrors 提取字段级错误，用于回显表单
func formErrors(err error) (apperror.ValidationErrors, bool) {
	var verrs apperror.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(appErr, apperror.ErrValidation) {
		field := appErr.Field
		if field == "" {
			field = "__all__"
		}
		return apperror.ValidationErrors{field: {appErr.Message}}, true
	}
	return nil, false
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func pageParam(c *gin.Context) int {
	return utils.ParsePage(c.Query("page"))
}
