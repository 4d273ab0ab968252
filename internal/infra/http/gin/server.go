package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"devlink/internal/infra/config"
	"devlink/internal/infra/obs"
)

type Handlers struct {
	Chat     ChatHTTP
	Realtime RealtimeHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Chat != nil {
		chat := api.Group("/chat")
		chat.GET("/conversations", h.Chat.ListConversations)
		chat.POST("/conversations", h.Chat.StartConversation)
		chat.POST("/conversations/:id/read", h.Chat.MarkRead)
		chat.POST("/resync", h.Chat.Resync)
		chat.POST("/retry", h.Chat.Retry)
		chat.PUT("/current", h.Chat.SetCurrent)
		chat.GET("/messages", h.Chat.GetMessages)
		chat.POST("/messages", h.Chat.SendMessage)
		chat.GET("/unread", h.Chat.TotalUnread)
	}
	if h.Realtime != nil {
		api.GET("/chat/ws", h.Realtime.Attach)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
