//go:generate go run go.uber.org/mock/mockgen -source=publisher.go -destination=../mocks/mock_publisher.go -package=mocks
package broker

import (
	"context"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

// Publisher доставляет событие всем подписчикам топика, кроме env.Origin.
// Реализации: Hub (в пределах процесса) и NATS relay (между инстансами).
type Publisher interface {
	Publish(ctx context.Context, topic string, env events.Envelope) error
}

// Subscriber - живое соединение, которое может держать подписки на несколько топиков.
type Subscriber interface {
	ID() string
	Principal() models.Principal

	// Deliver не должен блокироваться: false означает, что событие потеряно.
	Deliver(data []byte) bool
}

// Authorizer проверяет право принципала читать канал.
type Authorizer interface {
	AuthorizeRead(ctx context.Context, principal models.Principal, channelID uuid.UUID) error
}
