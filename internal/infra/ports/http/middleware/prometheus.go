package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/application/metric"
)

// PrometheusMiddleware создает middleware для сбора метрик HTTP запросов
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Шаблон маршрута, а не URI, чтобы не раздувать кардинальность
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}

			statusCode := c.Response().Status

			// Ошибку ещё не записали в ответ: берём код из неё
			if err != nil && !c.Response().Committed {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					statusCode = httpErr.Code
				} else {
					statusCode = http.StatusInternalServerError
				}
			}

			metric.RecordHTTPMetrics(c.Request().Method, endpoint, statusCode, time.Since(start))

			return err
		}
	}
}
