package dto

import (
	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse повторяет поля события message.sent и добавляет флаг прочтения
type MessageResponse struct {
	ID        int64           `json:"id"`
	ChannelID uuid.UUID       `json:"channel_id"`
	Position  int64           `json:"position"`
	Content   string          `json:"content"`
	CreatedAt string          `json:"created_at"`
	Sender    events.Presence `json:"sender"`
	Read      bool            `json:"read"`
	ReadAt    *string         `json:"read_at"`
}

func NewMessageResponseFromModel(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Position:  m.Position,
		Content:   m.Content,
		CreatedAt: events.FormatTime(m.CreatedAt),
		Sender:    events.PresenceOf(m.Sender()),
		Read:      m.IsRead(),
	}

	if m.ReadAt != nil {
		readAt := events.FormatTime(*m.ReadAt)
		resp.ReadAt = &readAt
	}

	return resp
}
