package input

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type SendMessageInput struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Content   string    `json:"content"`

	// OriginConnID - соединение отправителя, которое не должно получить эхо.
	OriginConnID string `json:"-"`
}

// NormalizeContent обрезает пробелы и проверяет длину содержимого сообщения.
func NormalizeContent(content string, maxLength int) (string, error) {
	content = strings.TrimSpace(content)

	if err := validateVar("content", content, "required,max="+strconv.Itoa(maxLength)); err != nil {
		return "", err
	}

	return content, nil
}
