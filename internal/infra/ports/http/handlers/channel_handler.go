package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomChat/internal/usecase"
)

type ChannelHandler struct {
	channelUsecase usecase.ChannelUsecase
}

func NewChannelHandler(channelUsecase usecase.ChannelUsecase) *ChannelHandler {
	return &ChannelHandler{channelUsecase: channelUsecase}
}

func (h *ChannelHandler) ListPublicHandler(c echo.Context) error {
	page, err := pageRequest(c)
	if err != nil {
		return badRequest(c, "invalid pagination")
	}

	channels, err := h.channelUsecase.ListPublic(c.Request().Context(), page)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewPageResponse(channels, dto.NewChannelResponseFromModel))
}

func (h *ChannelHandler) ListMineHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	page, err := pageRequest(c)
	if err != nil {
		return badRequest(c, "invalid pagination")
	}

	channels, err := h.channelUsecase.ListForUser(c.Request().Context(), p, page)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewPageResponse(channels, dto.NewChannelResponseFromModel))
}

func (h *ChannelHandler) CreateChannelHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req dto.CreateChannelRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	channel, err := h.channelUsecase.CreateChannel(c.Request().Context(), p, &input.CreateChannelInput{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.NewChannelResponseFromModel(channel))
}

// GetChannelHandler принимает id или slug
func (h *ChannelHandler) GetChannelHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	channel, err := h.channelUsecase.GetChannel(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewChannelResponseFromModel(channel))
}

func (h *ChannelHandler) JoinChannelHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	channelID, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "invalid channel id")
	}

	channel, membership, err := h.channelUsecase.Join(c.Request().Context(), p, channelID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewJoinChannelResponse(channel, membership))
}

func (h *ChannelHandler) LeaveChannelHandler(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	channelID, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "invalid channel id")
	}

	if err = h.channelUsecase.Leave(c.Request().Context(), p, channelID); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
