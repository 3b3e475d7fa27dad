package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/appctx"
)

func principal(c echo.Context) (models.Principal, error) {
	p, ok := appctx.Principal(c.Request().Context())
	if !ok {
		return models.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid user")
	}

	return p, nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

// pageRequest читает page и per_page из query; нормализацию делает usecase.
func pageRequest(c echo.Context) (models.PageRequest, error) {
	var page models.PageRequest

	err := echo.QueryParamsBinder(c).
		Int("page", &page.Page).
		Int("per_page", &page.PerPage).
		BindError()

	return page, err
}
