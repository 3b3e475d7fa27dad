package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/RoomChat/internal/domain"
)

func TestRespondError(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "should map validation errors to 422 with fields",
			err:    domain.NewValidationError("name", "is required"),
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"the given data was invalid","errors":{"name":["is required"]}}`,
		},
		{
			name:   "should hide the authorization reason",
			err:    fmt.Errorf("send: %w", domain.NewAuthorizationError("not a member")),
			status: http.StatusForbidden,
			body:   `{"error":"forbidden"}`,
		},
		{
			name:   "should map not found",
			err:    fmt.Errorf("channel x: %w", domain.ErrNotFound),
			status: http.StatusNotFound,
			body:   `{"error":"not found"}`,
		},
		{
			name:   "should hide internal errors",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			body:   `{"error":"internal server error"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			req.NoError(respondError(c, tc.err))

			req.Equal(tc.status, rec.Code)
			req.JSONEq(tc.body, rec.Body.String())
		})
	}
}

func TestPageRequest(t *testing.T) {
	e := echo.New()

	t.Run("should read page and per_page", func(t *testing.T) {
		req := require.New(t)
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=2&per_page=5", nil), httptest.NewRecorder())

		page, err := pageRequest(c)

		req.NoError(err)
		req.Equal(2, page.Page)
		req.Equal(5, page.PerPage)
	})

	t.Run("should reject non numeric values", func(t *testing.T) {
		req := require.New(t)
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=two", nil), httptest.NewRecorder())

		_, err := pageRequest(c)

		req.Error(err)
	})
}
