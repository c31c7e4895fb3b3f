package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/YumYum643/discord-clone/internal/auth"
	"github.com/YumYum643/discord-clone/internal/config"
	"github.com/YumYum643/discord-clone/internal/core"
	"github.com/YumYum643/discord-clone/internal/store"
)

// NewServer builds the HTTP server: auth endpoints, the channel directory
// API, and the WebSocket chat endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	authHandlers := NewAuthHandlers(authService, logger)
	channelHandlers := NewChannelHandlers(st, logger, cfg.HistoryLimit)
	wsHandler := NewWSHandler(hub, authService, st, cfg.MaxMessageBytes, logger)

	api := router.Group("/api")
	api.POST("/auth/register", authHandlers.Register)
	api.POST("/auth/login", authHandlers.Login)

	protected := api.Group("", AuthMiddleware(authService, logger))
	protected.GET("/channels", channelHandlers.ListChannels)
	protected.POST("/channels", channelHandlers.CreateChannel)
	protected.GET("/channels/:id/messages", channelHandlers.GetHistory)
	protected.POST("/channels/:id/verify", channelHandlers.VerifySecret)

	router.GET("/ws", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
