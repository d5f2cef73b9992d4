package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/broadcast"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// NewServer builds the HTTP server exposing the room API and the WebSocket endpoint.
// WebSocket upgrades are served by the plain mux; everything else goes to gin.
// audit may be nil, in which case the audit endpoint is not registered.
func NewServer(registry *core.Registry, router *core.Router, hub *broadcast.Hub, audit store.AuditStore, cfg *config.Config, logger *zerolog.Logger) (*stdhttp.Server, *WSHandler) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))
	engine.Use(CORSMiddleware(cfg.AllowedOrigins))

	engine.GET("/health", healthHandler)

	roomHandlers := NewRoomHandlers(registry, hub, logger)
	api := engine.Group("/api")
	{
		api.GET("/stats", roomHandlers.Stats)

		rooms := api.Group("/chatroom")
		rooms.POST("/create", roomHandlers.CreateRoom)
		rooms.POST("/join", roomHandlers.JoinRoom)
		rooms.GET("/:roomCode", roomHandlers.GetRoom)

		if audit != nil {
			auditHandlers := NewAuditHandlers(audit, logger)
			api.GET("/audit", auditHandlers.ListEvents)
			api.GET("/audit/:roomCode", auditHandlers.ListEvents)
		}
	}

	ws := NewWSHandler(registry, router, hub, cfg, logger)

	mux := stdhttp.NewServeMux()
	mux.Handle("GET /ws/{roomCode}", ws)
	mux.Handle("/", engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, ws
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
