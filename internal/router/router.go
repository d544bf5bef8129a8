package router

import (
	"net/http"

	"agora/internal/config"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// New builds the engine with sessions, templates and all routes.
func New(cfg config.Config, svc *services.Services) *gin.Engine {
	r := gin.Default()
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("agora_session", store))

	r.HTMLRender = loadTemplates(cfg.TemplatesDir)
	r.Static("/static", cfg.StaticDir)

	r.Use(middleware.LoadUser(svc.Users, svc.Notifications, cfg.JWTSecret))

	RegisterRoutes(r, cfg, svc)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg config.Config, svc *services.Services) {
	// Handlers
	authHandler := handlers.NewAuthHandler(svc.Users, cfg.JWTSecret, cfg.TokenTTL)
	postHandler := handlers.NewPostHandler(svc.Posts, svc.Comments, svc.Users)
	commentHandler := handlers.NewCommentHandler(svc.Comments)
	attachmentHandler := handlers.NewAttachmentHandler(svc.Attachments)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Posts)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	adminHandler := handlers.NewAdminHandler(svc.Posts)

	// 公共路由 (Public Routes)
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/community") })
	r.GET("/signup", authHandler.ShowRegister) // 注册页面
	r.POST("/signup", authHandler.Register)    // 提交注册
	r.GET("/login", authHandler.ShowLogin)     // 登录页面
	r.POST("/login", authHandler.Login)        // 提交登录
	r.GET("/logout", authHandler.Logout)       // 退出登录

	// 受保护页面 (Protected Pages)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/community", postHandler.List)                          // 帖子列表
		authorized.GET("/community/create-post", postHandler.ShowCreate)        // 发帖页面
		authorized.POST("/community/create-post", postHandler.Create)           // 提交发帖
		authorized.GET("/community/post/:id", postHandler.Detail)               // 帖子详情
		authorized.GET("/community/post/:id/edit", postHandler.ShowEdit)        // 编辑页面
		authorized.POST("/community/post/:id/edit", postHandler.Update)         // 提交编辑
		authorized.POST("/community/post/:id/delete", postHandler.Delete)       // 删除帖子
		authorized.POST("/community/post/:id/comments", commentHandler.Create)  // 发表评论/回复
		authorized.POST("/community/post/:id/pin", adminHandler.TogglePin)      // 置顶 (管理员)
		authorized.POST("/community/comment/:id/edit", commentHandler.Update)   // 编辑评论
		authorized.POST("/community/comment/:id/delete", commentHandler.Delete) // 删除评论
		authorized.GET("/profile/:id", userHandler.Profile)                     // 用户主页
	}

	// JSON API
	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.APIRegister)
		api.POST("/auth/login", authHandler.APILogin)
		api.POST("/auth/logout", authHandler.APILogout)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())
	{
		protected.GET("/me", userHandler.APIMe)
		protected.PATCH("/me", userHandler.APIUpdateMe)
		protected.GET("/me/posts", postHandler.APIMyPosts)
		protected.GET("/categories", postHandler.Categories)

		protected.GET("/posts", postHandler.APIList)
		protected.POST("/posts", postHandler.APICreate)
		protected.GET("/posts/:id", postHandler.APIGet)
		protected.PUT("/posts/:id", postHandler.APIUpdate)
		protected.DELETE("/posts/:id", postHandler.APIDelete)
		protected.PUT("/posts/:id/pin", adminHandler.APIPin)

		protected.GET("/posts/:id/comments", commentHandler.APIList)
		protected.POST("/posts/:id/comments", commentHandler.APICreate)
		protected.GET("/posts/:id/comments/count", commentHandler.APICount)
		protected.GET("/posts/:id/attachments", attachmentHandler.ListForPost)
		protected.PUT("/posts/:id/attachments/order", attachmentHandler.ReorderForPost)

		protected.GET("/comments/:id/replies", commentHandler.APIReplies)
		protected.PUT("/comments/:id", commentHandler.APIUpdate)
		protected.DELETE("/comments/:id", commentHandler.APIDelete)
		protected.GET("/comments/:id/attachments", attachmentHandler.ListForComment)
		protected.PUT("/comments/:id/attachments/order", attachmentHandler.ReorderForComment)

		protected.POST("/attachments/presign", attachmentHandler.Presign)
		protected.POST("/attachments", attachmentHandler.Register)
		protected.DELETE("/attachments/:id", attachmentHandler.Delete)

		protected.GET("/users/:id", userHandler.APIProfile)
		protected.GET("/users/:id/posts", userHandler.APIPosts)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/read-all", notificationHandler.ReadAll)
		protected.POST("/notifications/:id/read", notificationHandler.Read)
		protected.DELETE("/notifications/:id", notificationHandler.Delete)
	}
}
