package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/application/metric"
	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

// Broker связывает авторизацию подписки с живым fan-out.
//
// Локальные подписки лежат в hub, а все события уходят через publisher:
// это либо сам hub, либо relay, который возвращает события в hub каждого инстанса.
type Broker struct {
	hub       *Hub
	publisher Publisher
	authz     Authorizer
}

func NewBroker(hub *Hub, publisher Publisher, authz Authorizer) *Broker {
	return &Broker{
		hub:       hub,
		publisher: publisher,
		authz:     authz,
	}
}

// Subscribe проверяет право чтения и регистрирует подписку соединения на канал.
// При отказе никакого состояния не создаётся.
//
// После регистрации право проверяется повторно: выход из канала мог
// завершиться между первой проверкой и Add, и тогда Evict эту подписку не увидел.
func (b *Broker) Subscribe(ctx context.Context, s Subscriber, channelID uuid.UUID) (events.SubscribedEvent, error) {
	if err := b.authz.AuthorizeRead(ctx, s.Principal(), channelID); err != nil {
		return events.SubscribedEvent{}, err
	}

	topicName := events.ChannelTopic(channelID)
	present := b.hub.Present(topicName, s.Principal().ID)

	if b.hub.Add(topicName, s) {
		if err := b.authz.AuthorizeRead(ctx, s.Principal(), channelID); err != nil {
			b.hub.Remove(topicName, s.ID())
			return events.SubscribedEvent{}, err
		}

		slog.Debug(
			"subscribed",
			slog.String(constant.Topic, topicName),
			slog.String(constant.ConnID, s.ID()),
			slog.Any(constant.UserID, s.Principal().ID),
		)

		// Вторая вкладка того же пользователя не меняет состав участников
		if !present {
			b.publishPresence(ctx, topicName, events.TypePresenceJoin, channelID, s)
		}
	}

	return events.SubscribedEvent{
		ChannelID: channelID,
		Me:        events.PresenceOf(s.Principal()),
		Members:   lo.Map(b.hub.Members(topicName), func(p models.Principal, _ int) events.Presence { return events.PresenceOf(p) }),
	}, nil
}

// Unsubscribe снимает подписку. Повторный вызов ничего не делает.
func (b *Broker) Unsubscribe(ctx context.Context, s Subscriber, channelID uuid.UUID) {
	topicName := events.ChannelTopic(channelID)

	if _, ok := b.hub.Remove(topicName, s.ID()); ok {
		b.leave(ctx, topicName, channelID, s)
	}
}

// Disconnect снимает все подписки закрытого соединения.
func (b *Broker) Disconnect(ctx context.Context, s Subscriber) {
	for _, topicName := range b.hub.RemoveConn(s.ID()) {
		_, channelID, ok := events.ParseTopic(topicName)
		if !ok {
			continue
		}

		b.leave(ctx, topicName, channelID, s)
	}
}

// Evict снимает подписки принципала на канал на всех инстансах, например после выхода из канала.
// Снятые соединения получают unsubscribed, остальные подписчики - presence.leave.
func (b *Broker) Evict(ctx context.Context, channelID uuid.UUID, p models.Principal) {
	topicName := events.ChannelTopic(channelID)

	frame, err := events.NewMessage(events.TypePresenceLeave, events.PresenceEvent{
		ChannelID: channelID,
		Member:    events.PresenceOf(p),
	})
	if err != nil {
		slog.Error("build presence frame", slog.Any(constant.Error, err))
		return
	}

	if err = b.publisher.Publish(ctx, topicName, events.Envelope{Evict: &p.ID, Frame: frame}); err != nil {
		metric.IncrementPublishErrors()
		slog.Error(
			"publish eviction",
			slog.Any(constant.Error, err),
			slog.String(constant.Topic, topicName),
			slog.Any(constant.UserID, p.ID),
		)
	}
}

// PublishMessage рассылает сохранённое сообщение всем подписчикам канала, кроме origin.
func (b *Broker) PublishMessage(ctx context.Context, msg *models.Message, origin string) error {
	frame, err := events.NewMessage(events.TypeMessageSent, events.NewMessageSentEvent(msg))
	if err != nil {
		return fmt.Errorf("build message frame: %w", err)
	}

	env := events.Envelope{
		Origin:   origin,
		Position: msg.Position,
		Frame:    frame,
	}

	if err = b.publisher.Publish(ctx, events.ChannelTopic(msg.ChannelID), env); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	return nil
}

// Authorize - callback авторизации подписки для транспортного слоя:
// возвращает presence описание принципала или отказ.
func (b *Broker) Authorize(ctx context.Context, principal models.Principal, topicName string) (events.Presence, error) {
	kind, id, ok := events.ParseTopic(topicName)
	if !ok {
		return events.Presence{}, fmt.Errorf("topic %q: %w", topicName, domain.ErrNotFound)
	}

	switch kind {
	case "user":
		if id != principal.ID {
			return events.Presence{}, domain.NewAuthorizationError("private notifications belong to another user")
		}
	default:
		if err := b.authz.AuthorizeRead(ctx, principal, id); err != nil {
			return events.Presence{}, err
		}
	}

	return events.PresenceOf(principal), nil
}

// leave публикует presence.leave, только когда у принципала не осталось соединений на топике.
func (b *Broker) leave(ctx context.Context, topicName string, channelID uuid.UUID, s Subscriber) {
	if b.hub.Present(topicName, s.Principal().ID) {
		return
	}

	b.publishPresence(ctx, topicName, events.TypePresenceLeave, channelID, s)
}

func (b *Broker) publishPresence(ctx context.Context, topicName, eventType string, channelID uuid.UUID, s Subscriber) {
	frame, err := events.NewMessage(eventType, events.PresenceEvent{
		ChannelID: channelID,
		Member:    events.PresenceOf(s.Principal()),
	})
	if err != nil {
		slog.Error("build presence frame", slog.Any(constant.Error, err))
		return
	}

	if err = b.publisher.Publish(ctx, topicName, events.Envelope{Origin: s.ID(), Frame: frame}); err != nil {
		metric.IncrementPublishErrors()
		slog.Error(
			"publish presence",
			slog.Any(constant.Error, err),
			slog.String(constant.Topic, topicName),
			slog.String("type", eventType),
		)
	}
}
