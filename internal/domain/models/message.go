package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         int64      `json:"id" db:"id"`
	ChannelID  uuid.UUID  `json:"channel_id" db:"channel_id"`
	Position   int64      `json:"position" db:"position"`
	SenderID   uuid.UUID  `json:"sender_id" db:"sender_id"`
	SenderName string     `json:"sender_name" db:"sender_name"`
	Content    string     `json:"content" db:"content"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty" db:"read_at"`
}

func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

func (m *Message) Sender() Principal {
	return Principal{ID: m.SenderID, DisplayName: m.SenderName}
}
