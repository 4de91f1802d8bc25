package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由。
func SetupRouter(api *handler.API, sessionSecret, uploadDir, uploadURLPath string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("mo_session", store))

	// 全局门禁：已登录但待审核的账号只能导航到白名单路由，
	// 信标与认证端点在门禁内部豁免。
	r.Use(api.GateBlockedNavigation())

	// 静态文件服务（上传的作品图片）
	r.Static(uploadURLPath, uploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// 公开导航路由
	pages := r.Group("")
	{
		pages.GET("/", api.ShowHome)
		pages.GET("/welcome", api.ShowWelcome)
		pages.GET("/auth", api.ShowAuth)
		pages.GET("/obras/:id", api.ShowObraDetail)
		pages.GET("/artists/:id", api.ShowArtist)
	}

	// 认证
	r.POST("/auth/register", api.Register)
	r.POST("/auth/login", api.Login)
	r.GET("/auth/logout", api.Logout)

	// 访问与浏览跟踪信标：匿名可用，不经过门禁。
	track := r.Group("/api/track")
	{
		track.POST("/visit", api.TrackVisit)
		track.POST("/duration", api.TrackDuration)
		track.POST("/obras/:id/view", api.TrackObraView)
	}
	r.GET("/api/obras/:id/views", api.GetObraViewCount)

	// 需要登录且审核通过的路由
	approved := r.Group("")
	approved.Use(api.RequireUser(), api.RequireApproved())
	{
		approved.GET("/my-gallery", api.ListMyObras)
		approved.POST("/my-gallery/obras", api.CreateObra)
		approved.PUT("/my-gallery/obras/:id", api.UpdateObra)
		approved.DELETE("/my-gallery/obras/:id", api.DeleteObra)

		approved.GET("/my-profile", api.ShowMyProfile)
		approved.PUT("/my-profile", api.UpdateMyProfile)

		approved.POST("/uploads/image", api.UploadImage)
	}

	// 管理端路由
	admin := r.Group("/admin")
	admin.Use(api.RequireUser(), api.RequireAdmin())
	{
		admin.GET("/users", api.ListUsers)
		admin.PUT("/users/:id/blocked", api.SetUserBlocked)
		admin.DELETE("/users/:id", api.DeleteUser)

		admin.GET("/analytics", api.ShowAnalytics)

		admin.GET("/settings", api.ShowSettings)
		admin.PUT("/settings", api.UpdateSettings)
	}

	return r
}
