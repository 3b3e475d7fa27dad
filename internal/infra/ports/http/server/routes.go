package server

import (
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/application/config"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	channelHandler *handlers.ChannelHandler,
	messageHandler *handlers.MessageHandler,
	broadcastingHandler *handlers.BroadcastingHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	api := e.Group("/api")
	{
		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		{
			v1.GET("/ws", wsHandler.Handle)

			v1.POST("/broadcasting/auth", broadcastingHandler.AuthHandler)

			v1.GET("/channels", channelHandler.ListPublicHandler)
			v1.POST("/channels", channelHandler.CreateChannelHandler)
			v1.GET("/channels/:id", channelHandler.GetChannelHandler)
			v1.POST("/channels/:id/join", channelHandler.JoinChannelHandler)
			v1.POST("/channels/:id/leave", channelHandler.LeaveChannelHandler)

			v1.GET("/channels/:id/messages", messageHandler.HistoryHandler)
			v1.POST("/channels/:id/messages", messageHandler.SendMessageHandler)

			v1.GET("/messages/:id", messageHandler.GetMessageHandler)
			v1.POST("/messages/:id/read", messageHandler.MarkReadHandler)

			v1.GET("/me/channels", channelHandler.ListMineHandler)
		}
	}

	return e
}
