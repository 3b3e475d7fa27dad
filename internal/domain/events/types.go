package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain/models"
)

// Типы событий, которые сервер отправляет клиенту.
const (
	TypeConnected     = "connected"
	TypeMessageSent   = "message.sent"
	TypePresenceJoin  = "presence.join"
	TypePresenceLeave = "presence.leave"
	TypeSubscribed    = "subscribed"
	TypeUnsubscribed  = "unsubscribed"
	TypeMessageStored = "message.stored"
	TypeError         = "error"
	TypePong          = "pong"
)

// Типы команд, которые клиент отправляет серверу.
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
	CommandSend        = "send"
	CommandPing        = "ping"
)

// Message - общий кадр websocket протокола
type Message struct {
	Type string          `json:"type"`
	Ref  string          `json:"ref,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewMessage(eventType string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: eventType, Data: raw}, nil
}

// ConnectedEvent - первый кадр соединения. SocketID передаётся в X-Socket-ID
// при отправке через REST, чтобы не получить эхо.
type ConnectedEvent struct {
	SocketID string   `json:"socket_id"`
	Me       Presence `json:"me"`
}

// ChannelEvent - команда клиента, адресованная каналу (subscribe, unsubscribe)
type ChannelEvent struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

// SendEvent - отправка сообщения через websocket
type SendEvent struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Content   string    `json:"content"`
}

// Presence - публичное описание участника в presence канале
type Presence struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

func PresenceOf(p models.Principal) Presence {
	return Presence{ID: p.ID, DisplayName: p.DisplayName}
}

// MessageSentEvent - доставляемое подписчикам сохранённое сообщение
type MessageSentEvent struct {
	ID        int64     `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	Position  int64     `json:"position"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"created_at"`
	Sender    Presence  `json:"sender"`
}

func NewMessageSentEvent(m *models.Message) MessageSentEvent {
	return MessageSentEvent{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Position:  m.Position,
		Content:   m.Content,
		CreatedAt: FormatTime(m.CreatedAt),
		Sender:    PresenceOf(m.Sender()),
	}
}

// PresenceEvent - вход или выход участника
type PresenceEvent struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Member    Presence  `json:"member"`
}

// SubscribedEvent - ответ на успешную подписку: кто я и кто уже здесь
type SubscribedEvent struct {
	ChannelID uuid.UUID  `json:"channel_id"`
	Me        Presence   `json:"me"`
	Members   []Presence `json:"members"`
}

// ErrorEvent - ошибка обработки команды клиента
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fields  any    `json:"fields,omitempty"`
}

// FormatTime - ISO-8601 в UTC с миллисекундами
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
