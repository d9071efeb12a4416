package handlers

import (
	"github.com/gin-gonic/gin"

	"freeshare/internal/middleware"
)

// Routes groups the handlers mounted under /api.
type Routes struct {
	Sessions      middleware.SessionValidator
	DB            Pinger
	Auth          *AuthHandler
	Users         *UserHandler
	Items         *ItemHandler
	Conversations *ConversationHandler
	Uploads       *UploadHandler
	WebSocket     gin.HandlerFunc
}

// Register mounts every route on router. Uploads and WebSocket are optional.
func (rt Routes) Register(router *gin.Engine) {
	RegisterValidators()
	LoadTemplates(router)

	requireAuth := middleware.RequireAuth(rt.Sessions)
	optionalAuth := middleware.OptionalAuth(rt.Sessions)

	api := router.Group("/api")
	api.GET("/health", Health(rt.DB))

	authGroup := api.Group("/auth")
	authGroup.POST("/demo", rt.Auth.Demo)
	authGroup.GET("/me", requireAuth, rt.Auth.Me)
	authGroup.POST("/logout", requireAuth, rt.Auth.Logout)
	authGroup.GET("/:provider", rt.Auth.Redirect)
	authGroup.GET("/:provider/callback", rt.Auth.Callback)
	authGroup.POST("/:provider/callback", rt.Auth.Callback)

	users := api.Group("/users")
	users.PATCH("/me", requireAuth, rt.Users.UpdateMe)
	users.GET("/:id", optionalAuth, rt.Users.Get)
	users.GET("/:id/items", optionalAuth, rt.Users.Items)

	items := api.Group("/items")
	items.GET("", optionalAuth, rt.Items.List)
	items.POST("", requireAuth, rt.Items.Create)
	items.GET("/:id", optionalAuth, rt.Items.Get)
	items.PATCH("/:id", requireAuth, rt.Items.Update)
	items.DELETE("/:id", requireAuth, rt.Items.Delete)
	items.POST("/:id/save", requireAuth, rt.Items.Save)
	items.DELETE("/:id/save", requireAuth, rt.Items.Unsave)
	api.GET("/saved", requireAuth, rt.Items.Saved)

	convs := api.Group("/conversations", requireAuth)
	convs.GET("", rt.Conversations.List)
	convs.POST("", rt.Conversations.Create)
	convs.GET("/:id", rt.Conversations.Get)
	convs.GET("/:id/messages", rt.Conversations.Messages)
	convs.POST("/:id/messages", rt.Conversations.Send)
	convs.POST("/:id/read", rt.Conversations.MarkRead)
	api.GET("/messages/unread-count", requireAuth, rt.Conversations.UnreadCount)

	if rt.Uploads != nil {
		api.POST("/uploads", requireAuth, rt.Uploads.Create)
	}
	if rt.WebSocket != nil {
		router.GET("/ws/conversations/:id", rt.WebSocket)
	}
}
