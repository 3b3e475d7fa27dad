package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/infra/appctx"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomChat/internal/usecase"
)

type MessageHandler struct {
	messageUsecase usecase.MessageUsecase
}

func NewMessageHandler(messageUsecase usecase.MessageUsecase) *MessageHandler {
	return &MessageHandler{messageUsecase: messageUsecase}
}

func (h *MessageHandler) HistoryHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	channelID, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "invalid channel id")
	}

	page, err := pageRequest(c)
	if err != nil {
		return badRequest(c, "invalid pagination")
	}

	messages, err := h.messageUsecase.History(c.Request().Context(), p, channelID, page)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewPageResponse(messages, dto.NewMessageResponseFromModel))
}

// SendMessageHandler - отправка через REST. Если клиент передал X-Socket-ID,
// его websocket соединение не получит эхо своего сообщения.
func (h *MessageHandler) SendMessageHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	channelID, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "invalid channel id")
	}

	var req dto.SendMessageRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	msg, err := h.messageUsecase.Send(c.Request().Context(), p, &input.SendMessageInput{
		ChannelID:    channelID,
		Content:      req.Content,
		OriginConnID: appctx.SocketID(c.Request().Context()),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.NewMessageResponseFromModel(msg))
}

func (h *MessageHandler) GetMessageHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid message id")
	}

	msg, err := h.messageUsecase.GetMessage(c.Request().Context(), p, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewMessageResponseFromModel(msg))
}

func (h *MessageHandler) MarkReadHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid message id")
	}

	msg, err := h.messageUsecase.MarkRead(c.Request().Context(), p, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewMessageResponseFromModel(msg))
}
