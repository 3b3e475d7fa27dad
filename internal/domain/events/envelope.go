package events

import (
	"strings"

	"github.com/google/uuid"
)

const (
	channelTopicPrefix = "channel."
	userTopicPrefix    = "user."
)

// ChannelTopic - топик канала для fan-out.
func ChannelTopic(channelID uuid.UUID) string {
	return channelTopicPrefix + channelID.String()
}

// UserTopic зарезервирован под личные уведомления и пока ничего не переносит.
func UserTopic(userID uuid.UUID) string {
	return userTopicPrefix + userID.String()
}

// ParseTopic разбирает имя топика на вид ("channel" или "user") и идентификатор.
func ParseTopic(topic string) (kind string, id uuid.UUID, ok bool) {
	var raw string

	switch {
	case strings.HasPrefix(topic, channelTopicPrefix):
		kind, raw = "channel", strings.TrimPrefix(topic, channelTopicPrefix)
	case strings.HasPrefix(topic, userTopicPrefix):
		kind, raw = "user", strings.TrimPrefix(topic, userTopicPrefix)
	default:
		return "", uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, false
	}

	return kind, id, true
}

// Envelope - событие на пути от публикации до подписчиков.
//
// Origin - соединение-инициатор, исключаемое из рассылки.
// Position > 0 только у message.sent и задаёт порядок внутри топика.
// Evict - принципал, чьи подписки на топик каждый инстанс снимает до рассылки Frame.
type Envelope struct {
	Origin   string     `json:"origin,omitempty"`
	Position int64      `json:"position,omitempty"`
	Evict    *uuid.UUID `json:"evict,omitempty"`
	Frame    Message    `json:"frame"`
}
