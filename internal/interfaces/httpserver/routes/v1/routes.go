package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/handlers"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/middlewares"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under the /v1 prefix. Media is served
// without the identity requirement so stored image URLs stay directly
// addressable.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.GET("/media/:ref", r.handlers.Media.Get)

	authed := group.Group("", middlewares.UserIdentity())
	authed.GET("/models", r.handlers.Model.List)

	conversations := authed.Group("/conversations")
	conversations.GET("", r.handlers.Conversation.List)
	conversations.POST("", r.handlers.Conversation.Create)
	conversations.GET("/:id", r.handlers.Conversation.Get)
	conversations.PATCH("/:id", r.handlers.Conversation.Rename)
	conversations.DELETE("/:id", r.handlers.Conversation.Delete)
	conversations.GET("/:id/messages", r.handlers.Conversation.ListMessages)
	conversations.POST("/:id/messages", r.handlers.Conversation.SubmitMessage)
	conversations.POST("/:id/stop", r.handlers.Conversation.StopGeneration)
	conversations.POST("/:id/images", r.handlers.Conversation.UploadImage)
}
