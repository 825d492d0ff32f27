package main

import (
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"time"

	"arcadepress/internal/apperror"
	"arcadepress/internal/models"
	"arcadepress/internal/utils"

	"github.com/gin-contrib/multitemplate"
)

// views 模板名 -> views 目录下的文件
var views = []string{
	"index.html",
	"error.html",
	"account/login.html",
	"account/profile.html",
	"blog/post_list.html",
	"blog/public_post_list.html",
	"blog/post_detail.html",
	"blog/create_post.html",
	"blog/edit_post.html",
	"blog/delete_post.html",
	"webgame/game_list.html",
	"webgame/game_play.html",
	"webgame/game_upload.html",
	"webgame/game_edit.html",
	"webgame/game_delete.html",
	"admin/games.html",
}

func loadTemplates(templatesDir, mediaURL string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	// Helper to assemble files
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(includes)+1)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, view)
		return files
	}

	funcMap := templateFuncs(mediaURL)
	for _, name := range views {
		r.AddFromFilesFuncs(name, funcMap, assemble(filepath.Join(templatesDir, "views", name))...)
	}
	return r
}

func templateFuncs(mediaURL string) template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo":  timeAgo,
		"markdown": utils.RenderMarkdown,
		"excerpt":  utils.Excerpt,
		"urlquery": url.QueryEscape,
		"gameSource": func(g models.Game) string {
			src, _ := g.Source(mediaURL)
			return src
		},
		"fieldErrors": fieldErrors,
	}
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

// fieldErrors 模板里取某个字段的错误，Errors 不存在时返回空
func fieldErrors(errs interface{}, field string) []string {
	switch e := errs.(type) {
	case apperror.ValidationErrors:
		return e[field]
	case map[string][]string:
		return e[field]
	}
	return nil
}
