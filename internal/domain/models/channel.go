package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain/input"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Channel struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	CreatorID   uuid.UUID  `json:"creator_id" db:"creator_id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description *string    `json:"description,omitempty" db:"description"`
	Visibility  Visibility `json:"visibility" db:"visibility"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	// MembersCount заполняется при чтении из хранилища
	MembersCount int `json:"members_count" db:"members_count"`
}

func NewChannel(in *input.CreateChannelInput) *Channel {
	visibility := Visibility(in.Visibility)
	if visibility == "" {
		visibility = VisibilityPublic
	}

	var description *string
	if in.Description != "" {
		d := in.Description
		description = &d
	}

	return &Channel{
		ID:          uuid.New(),
		CreatorID:   in.CreatorID,
		Name:        in.Name,
		Slug:        Slugify(in.Name),
		Description: description,
		Visibility:  visibility,
		CreatedAt:   time.Now().UTC(),
	}
}

func (c *Channel) IsPublic() bool {
	return c.Visibility == VisibilityPublic
}

// Membership - факт участия принципала в канале. JoinedAt не меняется при повторном входе.
type Membership struct {
	ChannelID uuid.UUID `json:"channel_id" db:"channel_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}
