package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mentorchat/internal/bootstrap"
	"mentorchat/internal/transport/http/handler"
	"mentorchat/internal/transport/http/middleware"
	"mentorchat/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "route not found")
	})
	router.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, response.CodeMethodNotAllowed, "method not allowed")
	})

	healthHandler := handler.NewHealthHandler(app.Health, app.Logger)
	router.GET("/health", healthHandler.Check)
	router.HEAD("/health", healthHandler.Check)

	chatHandler := handler.NewChatHandler(app.Chat)
	attachmentHandler := handler.NewAttachmentHandler(app.Uploads)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	v1.POST("/attachments", attachmentHandler.Upload)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/messages", chatHandler.AppendMessage)
	chatGroup.POST("/messages/attachment", chatHandler.SendWithAttachment)
	chatGroup.GET("/history", chatHandler.GetHistory)

	return router
}
