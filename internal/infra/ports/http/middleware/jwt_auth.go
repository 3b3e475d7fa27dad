package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/appctx"
)

const (
	CookieName     = "jwt"
	SocketIDHeader = "X-Socket-ID"
)

// Claims - токен внешнего провайдера идентификации: sub = id пользователя, name = отображаемое имя.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken подписывает HS256 токен для принципала.
func IssueToken(secret string, p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		Name: p.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken проверяет подпись и срок действия и возвращает принципала.
func ParseToken(secret, raw string) (models.Principal, error) {
	token, err := jwt.ParseWithClaims(
		raw,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return models.Principal{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Principal{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid subject: %w", err)
	}

	name := claims.Name
	if name == "" {
		name = userID.String()
	}

	return models.Principal{ID: userID, DisplayName: name}, nil
}

// JWTAuthMiddleware ищет токен в cookie "jwt", затем в заголовке Authorization,
// затем в query параметре token (браузерный websocket не умеет слать заголовки).
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing or malformed jwt"})
			}

			principal, err := ParseToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired jwt"})
			}

			ctx := appctx.WithPrincipal(c.Request().Context(), principal)

			if socketID := c.Request().Header.Get(SocketIDHeader); socketID != "" {
				ctx = appctx.WithSocketID(ctx, socketID)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	return c.QueryParam("token")
}
