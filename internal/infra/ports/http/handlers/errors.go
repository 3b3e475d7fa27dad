package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/infra/appctx"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/dto"
)

// respondError переводит доменную ошибку в HTTP ответ.
// Причина отказа в доступе и внутренние ошибки наружу не отдаются.
func respondError(c echo.Context, err error) error {
	if fields, ok := domain.FieldErrors(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, dto.ValidationErrorResponse{
			Message: "the given data was invalid",
			Errors:  fields,
		})
	}

	switch {
	case errors.Is(err, domain.ErrForbidden):
		slog.Info(
			"access denied",
			slog.Any(constant.Error, err),
			slog.String("uri", c.Request().RequestURI),
		)

		return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	}

	attrs := []any{slog.Any(constant.Error, err), slog.String("uri", c.Request().RequestURI)}
	if p, ok := appctx.Principal(c.Request().Context()); ok {
		attrs = append(attrs, slog.Any(constant.UserID, p.ID))
	}
	slog.Error("request failed", attrs...)

	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: message})
}
