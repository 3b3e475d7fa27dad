package appctx

import (
	"context"

	"github.com/qrave1/RoomChat/internal/domain/models"
)

type ctxKey string

const (
	principalKey ctxKey = "principal"
	socketIDKey  ctxKey = "socketID"
)

// WithPrincipal добавляет аутентифицированного пользователя в контекст
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Principal извлекает пользователя из контекста
func Principal(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// WithSocketID запоминает соединение, от имени которого пришёл REST запрос.
func WithSocketID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, socketIDKey, id)
}

func SocketID(ctx context.Context) string {
	id, _ := ctx.Value(socketIDKey).(string)
	return id
}
