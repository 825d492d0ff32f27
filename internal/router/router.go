package router

import (
	"log/slog"

	"arcadepress/internal/config"
	"arcadepress/internal/handlers"
	"arcadepress/internal/middleware"
	"arcadepress/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services 路由依赖的服务
type Services struct {
	Accounts  *services.AccountService
	Posts     *services.PostService
	Comments  *services.CommentService
	Reactions *services.ReactionService
	Games     *services.GameService
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, svc Services, log *slog.Logger) {
	// Handlers
	homeHandler := handlers.NewHomeHandler(svc.Posts, svc.Games)
	authHandler := handlers.NewAuthHandler(svc.Accounts, log)
	userHandler := handlers.NewUserHandler(svc.Accounts, svc.Posts, svc.Games, log)
	postHandler := handlers.NewPostHandler(svc.Posts, svc.Comments, svc.Reactions, svc.Games, log)
	reactionHandler := handlers.NewReactionHandler(svc.Reactions)
	gameHandler := handlers.NewGameHandler(svc.Games, cfg.MediaURL, log)
	adminHandler := handlers.NewAdminHandler(svc.Games)
	seoHandler := handlers.NewSEOHandler(svc.Posts, svc.Games, cfg.SiteURL)

	// 公共路由 (Public Routes)
	r.GET("/", homeHandler.Index)                    // 首页
	r.GET("/robots.txt", seoHandler.RobotsTxt)       // robots.txt
	r.GET("/sitemap.xml", seoHandler.SitemapXML)     // sitemap
	r.GET("/feed.xml", seoHandler.RSSFeed)           // RSS
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus

	// 媒体文件，游戏目录带沙箱 CSP
	media := r.Group(cfg.MediaURL, middleware.MediaHeaders(cfg.MediaURL))
	media.Static("/", cfg.MediaRoot)

	// 账号 (Account)
	account := r.Group("/account")
	{
		account.GET("/login", authHandler.ShowLogin)                            // 登录页面
		account.GET("/logout", authHandler.Logout)                              // 退出登录
		account.POST("/logout", authHandler.Logout)                             // 退出登录
		account.GET("/github/login", authHandler.GitHubLogin)                   // 跳转 GitHub 授权
		account.GET("/github/login/callback", authHandler.GitHubCallback)       // GitHub 回调
		account.GET("/profile", middleware.AuthRequired(), userHandler.Profile) // 个人主页
	}

	// 博客 (Blog)
	blog := r.Group("/blog")
	{
		blog.GET("/posts/public", postHandler.ListPublic) // 已发布文章
		blog.GET("/posts/:slug", postHandler.Detail)      // 文章详情页

		authorized := blog.Group("", middleware.AuthRequired())
		authorized.GET("/posts", postHandler.List)                    // 我的文章
		authorized.GET("/posts/create", postHandler.ShowCreate)       // 发布文章页面
		authorized.POST("/posts/create", postHandler.Create)          // 提交发布文章
		authorized.POST("/posts/:slug", postHandler.CreateComment)    // 发表评论
		authorized.GET("/posts/:slug/edit", postHandler.ShowEdit)     // 编辑文章页面
		authorized.POST("/posts/:slug/edit", postHandler.Update)      // 提交文章更新
		authorized.GET("/posts/:slug/delete", postHandler.ShowDelete) // 删除确认
		authorized.POST("/posts/:slug/delete", postHandler.Delete)    // 删除文章

		blog.POST("/react/:type/:id", middleware.AuthRequiredJSON(), reactionHandler.React) // 点赞/点踩
	}

	// 游戏 (Games)
	games := r.Group("/games")
	{
		games.GET("/list", gameHandler.List)       // 游戏列表
		games.GET("/play/:slug", gameHandler.Play) // 游戏页面

		authorized := games.Group("", middleware.AuthRequired())
		authorized.GET("/upload", gameHandler.ShowUpload)       // 上传页面
		authorized.POST("/upload", gameHandler.Upload)          // 提交上传
		authorized.GET("/edit/:slug", gameHandler.ShowEdit)     // 编辑页面
		authorized.POST("/edit/:slug", gameHandler.Update)      // 提交编辑
		authorized.GET("/delete/:slug", gameHandler.ShowDelete) // 删除确认
		authorized.POST("/delete/:slug", gameHandler.Delete)    // 删除游戏
	}

	// 管理后台 (Admin)
	admin := r.Group("/admin", middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/games", adminHandler.PendingGames)                  // 待审核游戏
		admin.POST("/games/:slug/approve", adminHandler.ToggleApproval) // 审核/撤销
	}

	r.NoRoute(handlers.NotFound)
}
