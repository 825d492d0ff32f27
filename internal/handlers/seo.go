package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"arcadepress/internal/services"
	"arcadepress/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	sitemapLimit = 500
	feedLimit    = 20
)

type SEOHandler struct {
	posts   *services.PostService
	games   *services.GameService
	siteURL string
}

func NewSEOHandler(posts *services.PostService, games *services.GameService, siteURL string) *SEOHandler {
	return &SEOHandler{posts: posts, games: games, siteURL: siteURL}
}

// RobotsTxt 返回robots.txt内容
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /admin/
Disallow: /account/
Disallow: /blog/react/
Disallow: /media/games/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML 动态生成sitemap.xml
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	posts, err := h.posts.Latest(ctx, sitemapLimit)
	if err != nil {
		handleError(c, err)
		return
	}
	games, err := h.games.Latest(ctx, sitemapLimit)
	if err != nil {
		handleError(c, err)
		return
	}

	now := time.Now().Format("2006-01-02")
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	writeURL := func(path, lastmod, changefreq string, priority float64) {
		fmt.Fprintf(&b, `  <url>
    <loc>%s%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, h.siteURL, escapeXML(path), lastmod, changefreq, priority)
	}

	writeURL("/", now, "daily", 1.0)
	writeURL("/blog/posts/public", now, "daily", 0.9)
	writeURL("/games/list", now, "daily", 0.9)

	for _, post := range posts {
		// 根据文章新旧程度调整优先级
		priority, changefreq := 0.6, "weekly"
		if time.Since(post.CreatedAt) < 7*24*time.Hour {
			priority, changefreq = 0.8, "daily"
		}
		writeURL("/blog/posts/"+post.Slug, post.UpdatedAt.Format("2006-01-02"), changefreq, priority)
	}
	for _, game := range games {
		writeURL("/games/play/"+game.Slug, game.CreatedAt.Format("2006-01-02"), "monthly", 0.7)
	}

	b.WriteString(`</urlset>`)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

// RSSFeed 生成RSS 2.0 feed
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	posts, err := h.posts.Latest(c.Request.Context(), feedLimit)
	if err != nil {
		handleError(c, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>ArcadePress</title>
    <link>` + h.siteURL + `</link>
    <description>Devlogs and browser games from the community</description>
    <language>en</language>
    <lastBuildDate>` + time.Now().Format(time.RFC1123Z) + `</lastBuildDate>
    <atom:link href="` + h.siteURL + `/feed.xml" rel="self" type="application/rss+xml"/>
`)

	for _, post := range posts {
		link := h.siteURL + "/blog/posts/" + post.Slug
		b.WriteString(`    <item>
      <title>` + escapeXML(post.Title) + `</title>
      <link>` + link + `</link>
      <description>` + escapeXML(utils.Excerpt(post.Content, 300)) + `</description>
      <author>` + escapeXML(post.User.DisplayName()) + `</author>
      <pubDate>` + post.CreatedAt.Format(time.RFC1123Z) + `</pubDate>
      <guid isPermaLink="true">` + link + `</guid>
    </item>
`)
	}

	b.WriteString(`  </channel>
</rss>`)

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

// escapeXML 转义XML特殊字符
func escapeXML(s string) string {
	return html.EscapeString(s)
}
