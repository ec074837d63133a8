package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/auth"
	"github.com/lpusphere/sphere-server/internal/config"
	"github.com/lpusphere/sphere-server/internal/core"
	"github.com/lpusphere/sphere-server/internal/directory"
	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/unread"
)

// NewServer builds the HTTP server with the REST API and WebSocket endpoint.
func NewServer(
	st store.Store,
	authService *auth.Service,
	dir *directory.Directory,
	registry *core.Registry,
	dispatcher *core.Dispatcher,
	tracker *unread.Tracker,
	cfg config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	authHandlers := NewAuthHandlers(authService, logger)
	chatHandlers := NewChatHandlers(st, dir, dispatcher, tracker, logger)
	wsHandler := NewWSHandler(authService, registry, dispatcher, tracker, cfg.MessageRateLimit, logger)

	router.GET("/api/health", healthHandler)
	router.POST("/api/auth/login", authHandlers.Login)

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService, logger))
	{
		api.GET("/chats", chatHandlers.ListChats)
		api.GET("/chats/:classId/messages", chatHandlers.GetMessages)
		api.POST("/chats/:classId/messages", chatHandlers.PostMessage)
	}

	router.GET("/ws", gin.WrapH(wsHandler))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
}
