package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/application/config"
	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/infra/adapters/memory"
	"github.com/qrave1/RoomChat/internal/usecase"
)

// Коды ошибок в кадре error
const (
	codeBadRequest = "bad_request"
	codeValidation = "validation_failed"
	codeForbidden  = "forbidden"
	codeNotFound   = "not_found"
	codeInternal   = "internal"
	codeUnknown    = "unknown_command"
)

// PresenceBroker - живые подписки соединения на каналы.
type PresenceBroker interface {
	Subscribe(ctx context.Context, s broker.Subscriber, channelID uuid.UUID) (events.SubscribedEvent, error)
	Unsubscribe(ctx context.Context, s broker.Subscriber, channelID uuid.UUID)
	Disconnect(ctx context.Context, s broker.Subscriber)
}

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	broker         PresenceBroker
	messageUsecase usecase.MessageUsecase

	wsConnRepo memory.WebsocketConnectionRepository

	bufferSize int
}

func NewWebSocketHandler(
	cfg *config.Config,
	broker PresenceBroker,
	messageUsecase usecase.MessageUsecase,
	wsConnRepo memory.WebsocketConnectionRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		broker:         broker,
		messageUsecase: messageUsecase,
		wsConnRepo:     wsConnRepo,
		bufferSize:     cfg.Chat.SubscriberBuffer,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		// Upgrader уже ответил клиенту
		return nil
	}

	session := newWSSession(uuid.NewString(), p, ws, h.bufferSize)
	defer session.Close()

	h.wsConnRepo.Add(session.ID(), session)
	defer h.wsConnRepo.Remove(session.ID())

	// Подписки снимаются до закрытия соединения и не зависят от отмены запроса
	ctx := context.WithoutCancel(c.Request().Context())
	defer h.broker.Disconnect(ctx, session)

	go session.writeLoop()

	session.reply(events.TypeConnected, "", events.ConnectedEvent{
		SocketID: session.ID(),
		Me:       events.PresenceOf(p),
	})

	ws.SetReadLimit(maxMessageSize)

	if err = ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return nil
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.handleWebsocketError(session, err)
			return nil
		}

		var msg events.Message
		if err = json.Unmarshal(raw, &msg); err != nil {
			session.reply(events.TypeError, "", events.ErrorEvent{Code: codeBadRequest, Message: "malformed frame"})
			continue
		}

		h.handleMessage(ctx, session, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, session *wsSession, msg *events.Message) {
	switch msg.Type {
	case events.CommandSubscribe:
		var event events.ChannelEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.replyError(session, msg.Ref, fmt.Errorf("unmarshal subscribe: %w", errBadFrame))
			return
		}

		subscribed, err := h.broker.Subscribe(ctx, session, event.ChannelID)
		if err != nil {
			h.replyError(session, msg.Ref, err)
			return
		}

		session.reply(events.TypeSubscribed, msg.Ref, subscribed)

	case events.CommandUnsubscribe:
		var event events.ChannelEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.replyError(session, msg.Ref, fmt.Errorf("unmarshal unsubscribe: %w", errBadFrame))
			return
		}

		h.broker.Unsubscribe(ctx, session, event.ChannelID)

		session.reply(events.TypeUnsubscribed, msg.Ref, event)

	case events.CommandSend:
		var event events.SendEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.replyError(session, msg.Ref, fmt.Errorf("unmarshal send: %w", errBadFrame))
			return
		}

		stored, err := h.messageUsecase.Send(ctx, session.Principal(), &input.SendMessageInput{
			ChannelID:    event.ChannelID,
			Content:      event.Content,
			OriginConnID: session.ID(),
		})
		if err != nil {
			h.replyError(session, msg.Ref, err)
			return
		}

		session.reply(events.TypeMessageStored, msg.Ref, events.NewMessageSentEvent(stored))

	case events.CommandPing:
		session.reply(events.TypePong, msg.Ref, nil)

	default:
		session.reply(events.TypeError, msg.Ref, events.ErrorEvent{
			Code:    codeUnknown,
			Message: "unknown message type " + msg.Type,
		})
	}
}

var errBadFrame = errors.New("malformed command data")

// replyError переводит ошибку команды в кадр error по тем же правилам, что и REST.
func (h *WebSocketHandler) replyError(session *wsSession, ref string, err error) {
	event := events.ErrorEvent{Code: codeInternal, Message: "internal server error"}

	if fields, ok := domain.FieldErrors(err); ok {
		event = events.ErrorEvent{Code: codeValidation, Message: "the given data was invalid", Fields: fields}
	} else {
		switch {
		case errors.Is(err, errBadFrame):
			event = events.ErrorEvent{Code: codeBadRequest, Message: "malformed command data"}
		case errors.Is(err, domain.ErrForbidden):
			event = events.ErrorEvent{Code: codeForbidden, Message: "not found or forbidden"}
		case errors.Is(err, domain.ErrNotFound):
			event = events.ErrorEvent{Code: codeNotFound, Message: "not found"}
		default:
			slog.Error(
				"handle websocket command",
				slog.Any(constant.Error, err),
				slog.String(constant.ConnID, session.ID()),
				slog.Any(constant.UserID, session.Principal().ID),
			)
		}
	}

	session.reply(events.TypeError, ref, event)
}

func (h *WebSocketHandler) handleWebsocketError(session *wsSession, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			slog.Info(
				"user disconnected from websocket",
				slog.Any(constant.UserID, session.Principal().ID),
				slog.String(constant.ConnID, session.ID()),
			)
		default:
			slog.Warn(
				"websocket close error",
				slog.Int("code", closeErr.Code),
				slog.String(constant.ConnID, session.ID()),
			)
		}

		return
	}

	slog.Debug(
		"websocket read",
		slog.Any(constant.Error, err),
		slog.String(constant.ConnID, session.ID()),
	)
}
