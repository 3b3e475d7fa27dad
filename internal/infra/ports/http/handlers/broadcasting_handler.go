package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/dto"
)

// TopicAuthorizer - callback авторизации подписки на топик.
type TopicAuthorizer interface {
	Authorize(ctx context.Context, principal models.Principal, topic string) (events.Presence, error)
}

// BroadcastingHandler даёт внешнему сокет-серверу проверить подписку
// на channel.<id> или user.<id> тем же правилом, что и встроенный websocket.
type BroadcastingHandler struct {
	authorizer TopicAuthorizer
}

func NewBroadcastingHandler(authorizer TopicAuthorizer) *BroadcastingHandler {
	return &BroadcastingHandler{authorizer: authorizer}
}

func (h *BroadcastingHandler) AuthHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req dto.BroadcastAuthRequest
	if err = c.Bind(&req); err != nil || req.ChannelName == "" {
		return badRequest(c, "invalid request")
	}

	presence, err := h.authorizer.Authorize(c.Request().Context(), p, req.ChannelName)
	if err != nil {
		// Транспорт обязан отказать в подписке, причину не раскрываем
		if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "forbidden"})
		}

		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.BroadcastAuthResponse{
		ChannelName: req.ChannelName,
		ID:          presence.ID.String(),
		DisplayName: presence.DisplayName,
	})
}
